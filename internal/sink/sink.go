// Package sink delivers validation results to downstream systems: the
// Notion manual review queue and Salesforce leads.
package sink

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/model"
)

// Delivery is one validated recording handed to sinks.
type Delivery struct {
	RunID     string
	Recording string
	Result    *model.ValidationResult
	Cost      float64
}

// Sink receives validation results it accepts.
type Sink interface {
	Name() string
	Accepts(res *model.ValidationResult) bool
	Deliver(ctx context.Context, d Delivery) error
}

// Outcome records what happened to one delivery at one sink.
type Outcome struct {
	Sink      string `json:"sink"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// Dispatch offers d to every sink in order. Sink failures are logged and
// reported in the outcomes; they never fail the recording.
func Dispatch(ctx context.Context, sinks []Sink, d Delivery) []Outcome {
	if d.Result == nil {
		return nil
	}
	var out []Outcome
	for _, s := range sinks {
		if !s.Accepts(d.Result) {
			continue
		}
		o := Outcome{Sink: s.Name()}
		if err := s.Deliver(ctx, d); err != nil {
			o.Error = err.Error()
			zap.L().Warn("sink: delivery failed",
				zap.String("sink", s.Name()),
				zap.String("recording", d.Recording),
				zap.Error(err),
			)
		} else {
			o.Delivered = true
		}
		out = append(out, o)
	}
	return out
}

// interestSummary is a short plain-text description of the insurance lines
// discussed on the call.
func interestSummary(res *model.ValidationResult) string {
	var lines []string
	if v := res.AutoInsurance.MainVehicle; v != nil {
		lines = append(lines, "Auto: "+vehicleString(v))
	}
	if v := res.AutoInsurance.SecondaryVehicle; v != nil {
		lines = append(lines, "Second vehicle: "+vehicleString(v))
	}
	if p := res.AutoInsurance.CurrentProvider; p != "" {
		lines = append(lines, "Current auto provider: "+p)
	}
	if h := res.HomeInsurance; h.Interested != nil && *h.Interested {
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("Home: %s %s", h.Ownership, h.HomeType)))
	}
	if h := res.HealthInsurance; h.Interested != nil && *h.Interested {
		s := "Health"
		if h.HouseholdSize != nil {
			s += fmt.Sprintf(": household of %d", *h.HouseholdSize)
		}
		lines = append(lines, s)
	}
	return strings.Join(lines, "\n")
}

func vehicleString(v *model.Vehicle) string {
	return strings.Join(strings.Fields(v.Year+" "+v.Make+" "+v.Model), " ")
}
