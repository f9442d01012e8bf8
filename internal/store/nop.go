package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-validator/internal/model"
)

// Nop is a Store that keeps nothing. It still hands out run IDs so logs can
// correlate phases when persistence is disabled.
type Nop struct{}

var _ Store = Nop{}

func (Nop) CreateRun(_ context.Context, recording, phone string) (*model.Run, error) {
	now := time.Now().UTC()
	return &model.Run{
		ID:        uuid.New().String(),
		Recording: recording,
		Phone:     phone,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (Nop) UpdateRunStatus(context.Context, string, model.RunStatus) error { return nil }

func (Nop) UpdateRunResult(context.Context, string, *model.ValidationResult, float64) error {
	return nil
}

func (Nop) FailRun(context.Context, string, string) error { return nil }

func (Nop) GetRun(_ context.Context, runID string) (*model.Run, error) {
	return nil, eris.Errorf("run not found: %s (store disabled)", runID)
}

func (Nop) ListRuns(context.Context, RunFilter) ([]model.Run, error) { return nil, nil }

func (Nop) CreatePhase(_ context.Context, runID string, name string) (*model.RunPhase, error) {
	return &model.RunPhase{
		ID:        uuid.New().String(),
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: time.Now().UTC(),
	}, nil
}

func (Nop) CompletePhase(context.Context, string, *model.PhaseResult) error { return nil }

func (Nop) Migrate(context.Context) error { return nil }

func (Nop) Close() error { return nil }
