// Package reconcile merges an identity lookup with transcript extraction into
// a single ValidationResult and decides whether the lead needs a human to
// look at it.
//
// The identity record is authoritative for contact fields. The transcript is
// the only source for insurance details and agent feedback. Every condition
// that forces manual review appends its own reason; reasons are never
// deduplicated or overwritten.
package reconcile

import (
	"strings"

	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/internal/zipcode"
)

// LookupOutcome describes what happened to the identity lookup.
type LookupOutcome int

const (
	// LookupSkipped means no phone number was derivable, so no call was made.
	LookupSkipped LookupOutcome = iota
	// LookupDisabled means no identity resolver is configured.
	LookupDisabled
	// LookupFailed means a call was issued and errored.
	LookupFailed
	// LookupNoData means a call succeeded but returned no record.
	LookupNoData
	// LookupFound means a call succeeded and returned a record.
	LookupFound
)

func (o LookupOutcome) String() string {
	switch o {
	case LookupSkipped:
		return "skipped"
	case LookupDisabled:
		return "disabled"
	case LookupFailed:
		return "failed"
	case LookupNoData:
		return "no_data"
	case LookupFound:
		return "found"
	default:
		return "unknown"
	}
}

// Attempted reports whether a lookup request was actually issued.
func (o LookupOutcome) Attempted() bool {
	return o == LookupFailed || o == LookupNoData || o == LookupFound
}

// Review reasons produced by the engine.
const (
	ReasonNoPhone         = "No phone number available"
	ReasonLookupDisabled  = "Identity lookup not configured"
	ReasonLookupFailed    = "Failed to retrieve identity data"
	ReasonInvalidZip      = "Invalid ZIP code from identity source"
	ReasonNameMismatch    = "Name differs between verified source and transcript"
	ReasonAddressMismatch = "Address differs between verified source and transcript"
	ReasonZipMismatch     = "ZIP code differs between verified source and transcript"
	MissingPrefix         = "Missing: "
)

// Input bundles everything the engine reconciles. Identity must be nil unless
// Lookup is LookupFound.
type Input struct {
	PhoneFromFilename string
	Lookup            LookupOutcome
	Identity          *model.IdentityRecord
	Extracted         model.ExtractedFields
	Transcript        string
}

// Reconcile merges in into a ValidationResult. It is pure: the same input
// always yields an identical result.
func Reconcile(in Input) model.ValidationResult {
	id := in.Identity
	if in.Lookup != LookupFound {
		id = nil
	}
	ex := in.Extracted

	res := model.ValidationResult{
		FirstName:   prefer(field(id, func(r *model.IdentityRecord) string { return r.FirstName }), ex.FirstName),
		LastName:    prefer(field(id, func(r *model.IdentityRecord) string { return r.LastName }), ex.LastName),
		Address:     prefer(field(id, func(r *model.IdentityRecord) string { return r.Address }), ex.Address),
		City:        field(id, func(r *model.IdentityRecord) string { return r.City }),
		State:       prefer(field(id, func(r *model.IdentityRecord) string { return r.State }), ex.State),
		Zip:         prefer(field(id, func(r *model.IdentityRecord) string { return r.Zip }), ex.Zip),
		Email:       prefer(field(id, func(r *model.IdentityRecord) string { return r.Email }), ex.Email),
		DOB:         prefer(field(id, func(r *model.IdentityRecord) string { return r.DOB }), ex.DOB),
		PhoneNumber: prefer(in.PhoneFromFilename, ex.PhoneNumber),

		AutoInsurance:   ex.AutoInsurance,
		HomeInsurance:   ex.HomeInsurance,
		HealthInsurance: ex.HealthInsurance,
		AgentFeedback:   ex.AgentFeedback,

		LookupAttempted: in.Lookup.Attempted(),
		Status:          ex.Classification,
		ConfidenceScore: ex.ConfidenceScore,

		Reasons:             cloneStrings(ex.Reasons),
		MissingInformation:  cloneStrings(ex.MissingInformation),
		DataDiscrepancies:   cloneStrings(ex.DataDiscrepancies),
		ManualReviewReasons: []string{},
		Transcript:          in.Transcript,
	}
	if id != nil {
		cp := *id
		res.Identity = &cp
	}

	res.Verification = Compare(id, &ex)
	res.SuggestedName, res.SuggestedAddress = suggestions(id, &ex)

	switch in.Lookup {
	case LookupSkipped:
		res.FlagForReview(ReasonNoPhone)
	case LookupDisabled:
		res.FlagForReview(ReasonLookupDisabled)
	case LookupFailed:
		res.FlagForReview(ReasonLookupFailed)
	}

	if id != nil && id.Zip != "" && !zipcode.IsValid(id.Zip) {
		res.InvalidZip = true
		res.FlagForReview(ReasonInvalidZip)
	}

	for _, item := range ex.MissingInformation {
		res.FlagForReview(MissingPrefix + item)
	}
	for _, d := range ex.DataDiscrepancies {
		res.FlagForReview(d)
	}

	v := res.Verification
	if isFalse(v.NameMatches) {
		res.FlagForReview(ReasonNameMismatch)
	}
	if isFalse(v.AddressMatches) {
		res.FlagForReview(ReasonAddressMismatch)
	}
	if isFalse(v.ZipMatches) {
		res.FlagForReview(ReasonZipMismatch)
	}

	return res
}

// ReasonCategory maps a review reason to a bounded label for metrics.
// Missing items and model-reported discrepancies are free text, so they
// collapse into "missing" and "discrepancy".
func ReasonCategory(reason string) string {
	switch reason {
	case ReasonNoPhone:
		return "no_phone"
	case ReasonLookupDisabled:
		return "lookup_disabled"
	case ReasonLookupFailed:
		return "lookup_failed"
	case ReasonInvalidZip:
		return "invalid_zip"
	case ReasonNameMismatch:
		return "name_mismatch"
	case ReasonAddressMismatch:
		return "address_mismatch"
	case ReasonZipMismatch:
		return "zip_mismatch"
	}
	if strings.HasPrefix(reason, MissingPrefix) {
		return "missing"
	}
	return "discrepancy"
}

func field(r *model.IdentityRecord, get func(*model.IdentityRecord) string) string {
	if r == nil {
		return ""
	}
	return get(r)
}

func prefer(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

// suggestions returns the transcript name/address when the identity value
// took precedence over a different spoken value.
func suggestions(id *model.IdentityRecord, ex *model.ExtractedFields) (name, address string) {
	if id == nil {
		return "", ""
	}
	if idName, exName := id.FullName(), ex.FullName(); idName != "" && exName != "" && !Equal(idName, exName) {
		name = exName
	}
	if id.Address != "" && ex.Address != "" && !Equal(id.Address, ex.Address) {
		address = ex.Address
	}
	return name, address
}

func isFalse(b *bool) bool {
	return b != nil && !*b
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
