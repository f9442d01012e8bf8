package sink

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/pkg/salesforce"
)

// DefaultLeadSource is the Lead.LeadSource value when none is configured.
const DefaultLeadSource = "Call Center"

// SalesforceLead exports approved results that need no review as Salesforce
// Leads. A Lead already open for the same phone is updated instead.
type SalesforceLead struct {
	client     salesforce.Client
	leadSource string
}

// NewSalesforceLead creates a lead export sink.
func NewSalesforceLead(client salesforce.Client, leadSource string) *SalesforceLead {
	if leadSource == "" {
		leadSource = DefaultLeadSource
	}
	return &SalesforceLead{client: client, leadSource: leadSource}
}

// Name implements Sink.
func (s *SalesforceLead) Name() string { return "salesforce" }

// Accepts implements Sink. Salesforce rejects Leads without a last name.
func (s *SalesforceLead) Accepts(res *model.ValidationResult) bool {
	return res.Actionable() && res.LastName != ""
}

// Deliver implements Sink.
func (s *SalesforceLead) Deliver(ctx context.Context, d Delivery) error {
	fields := s.leadFields(d.Result)

	if d.Result.PhoneNumber != "" {
		existing, err := salesforce.FindLeadByPhone(ctx, s.client, d.Result.PhoneNumber)
		if err != nil {
			return eris.Wrap(err, "sink: salesforce lookup")
		}
		if existing != nil {
			if err := salesforce.UpdateLead(ctx, s.client, existing.ID, fields); err != nil {
				return eris.Wrap(err, "sink: salesforce update")
			}
			zap.L().Info("sink: lead updated", zap.String("lead_id", existing.ID), zap.String("recording", d.Recording))
			return nil
		}
	}

	id, err := salesforce.CreateLead(ctx, s.client, fields)
	if err != nil {
		return eris.Wrap(err, "sink: salesforce create")
	}
	zap.L().Info("sink: lead created", zap.String("lead_id", id), zap.String("recording", d.Recording))
	return nil
}

func (s *SalesforceLead) leadFields(res *model.ValidationResult) map[string]any {
	fields := map[string]any{
		"LastName":   res.LastName,
		"Company":    res.FullName() + " Household",
		"LeadSource": s.leadSource,
	}
	set := func(k, v string) {
		if v != "" {
			fields[k] = v
		}
	}
	set("FirstName", res.FirstName)
	set("Phone", res.PhoneNumber)
	set("Email", res.Email)
	set("Street", res.Address)
	set("City", res.City)
	set("State", res.State)
	set("PostalCode", res.Zip)
	set("Description", interestSummary(res))
	return fields
}
