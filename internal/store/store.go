// Package store persists the audit trail of validation runs.
package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/sells-group/lead-validator/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	Recording string          `json:"recording,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// DefaultListLimit caps ListRuns when the filter leaves Limit unset.
const DefaultListLimit = 100

// clause renders the filter as the tail of a runs SELECT: optional WHERE,
// newest first, then LIMIT and OFFSET. ph formats the n-th (1-based)
// bind placeholder for the driver.
func (f RunFilter) clause(ph func(n int) string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	eq := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, col+" = "+ph(len(args)))
	}
	if f.Status != "" {
		eq("status", string(f.Status))
	}
	if f.Recording != "" {
		eq("recording", f.Recording)
	}
	if f.Phone != "" {
		eq("phone", f.Phone)
	}

	var b strings.Builder
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)
	b.WriteString(" ORDER BY created_at DESC LIMIT " + ph(len(args)))

	if f.Offset > 0 {
		args = append(args, f.Offset)
		b.WriteString(" OFFSET " + ph(len(args)))
	}
	return b.String(), args
}

func dollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

func questionPlaceholder(int) string { return "?" }

// Store defines the persistence interface for validation runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, recording, phone string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.ValidationResult, cost float64) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
