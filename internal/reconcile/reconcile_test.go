package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-validator/internal/model"
)

func approvedExtraction() model.ExtractedFields {
	return model.ExtractedFields{
		Classification:  model.ClassificationApproved,
		ConfidenceScore: 0.92,
		Reasons:         []string{"Caller asked for an auto quote"},
	}
}

func TestReconcile_IdentityWinsForContactFields(t *testing.T) {
	t.Parallel()

	ex := approvedExtraction()
	ex.FirstName = "Janet"
	ex.Address = "12 Oak St"
	ex.Email = "spoken@example.com"

	res := Reconcile(Input{
		PhoneFromFilename: "5551234567",
		Lookup:            LookupFound,
		Identity: &model.IdentityRecord{
			PhoneNumber: "5551234567",
			FirstName:   "Jane",
			Address:     "12 Oak St",
			City:        "Austin",
			Email:       "jane@example.com",
		},
		Extracted: ex,
	})

	assert.Equal(t, "Jane", res.FirstName)
	assert.Equal(t, "12 Oak St", res.Address)
	assert.Equal(t, "Austin", res.City)
	assert.Equal(t, "jane@example.com", res.Email)
	assert.Equal(t, "5551234567", res.PhoneNumber)
	require.NotNil(t, res.Verification.NameMatches)
	assert.False(t, *res.Verification.NameMatches)
	assert.Equal(t, "Janet", res.SuggestedName)
	assert.Empty(t, res.SuggestedAddress)
	assert.True(t, res.NeedsManualReview)
	assert.Contains(t, res.ManualReviewReasons, ReasonNameMismatch)
	assert.Equal(t, model.ClassificationApproved, res.Status)
}

func TestReconcile_TranscriptFillsGaps(t *testing.T) {
	t.Parallel()

	ex := approvedExtraction()
	ex.FirstName = "Maria"
	ex.LastName = "Lopez"
	ex.State = "TX"
	ex.Zip = "73301"
	ex.DOB = "02/03/1980"
	ex.PhoneNumber = "5550001111"

	res := Reconcile(Input{
		Lookup:    LookupFound,
		Identity:  &model.IdentityRecord{PhoneNumber: "5550001111", City: "Austin"},
		Extracted: ex,
	})

	assert.Equal(t, "Maria", res.FirstName)
	assert.Equal(t, "Lopez", res.LastName)
	assert.Equal(t, "TX", res.State)
	assert.Equal(t, "73301", res.Zip)
	assert.Equal(t, "02/03/1980", res.DOB)
	assert.Equal(t, "5550001111", res.PhoneNumber)
	assert.Equal(t, "Austin", res.City)
	assert.False(t, res.NeedsManualReview)
	assert.Empty(t, res.ManualReviewReasons)
}

func TestReconcile_FilenamePhoneWins(t *testing.T) {
	t.Parallel()

	ex := approvedExtraction()
	ex.PhoneNumber = "5559999999"

	res := Reconcile(Input{PhoneFromFilename: "5551234567", Lookup: LookupNoData, Extracted: ex})
	assert.Equal(t, "5551234567", res.PhoneNumber)
	assert.True(t, res.LookupAttempted)
	assert.False(t, res.NeedsManualReview)
}

func TestReconcile_UndefinedWhenOneSideMissing(t *testing.T) {
	t.Parallel()

	ex := approvedExtraction()
	ex.Zip = "12345"

	res := Reconcile(Input{
		PhoneFromFilename: "5551234567",
		Lookup:            LookupFound,
		Identity:          &model.IdentityRecord{PhoneNumber: "5551234567", FirstName: "Ann"},
		Extracted:         ex,
	})

	assert.Nil(t, res.Verification.ZipMatches)
	assert.Nil(t, res.Verification.NameMatches)
	assert.Nil(t, res.Verification.AddressMatches)
	assert.Nil(t, res.Verification.StateMatches)
	assert.NotContains(t, res.ManualReviewReasons, ReasonZipMismatch)
	assert.False(t, res.NeedsManualReview)
}

func TestReconcile_ZipComparesFivePrefix(t *testing.T) {
	t.Parallel()

	ex := approvedExtraction()
	ex.Zip = "12345"

	res := Reconcile(Input{
		PhoneFromFilename: "5551234567",
		Lookup:            LookupFound,
		Identity:          &model.IdentityRecord{PhoneNumber: "5551234567", Zip: "12345-6789"},
		Extracted:         ex,
	})

	require.NotNil(t, res.Verification.ZipMatches)
	assert.True(t, *res.Verification.ZipMatches)
	assert.False(t, res.InvalidZip)
	assert.False(t, res.NeedsManualReview)

	ex.Zip = "54321"
	res = Reconcile(Input{
		PhoneFromFilename: "5551234567",
		Lookup:            LookupFound,
		Identity:          &model.IdentityRecord{PhoneNumber: "5551234567", Zip: "12345-6789"},
		Extracted:         ex,
	})
	require.NotNil(t, res.Verification.ZipMatches)
	assert.False(t, *res.Verification.ZipMatches)
	assert.Equal(t, []string{ReasonZipMismatch}, res.ManualReviewReasons)
}

func TestReconcile_CaseAndWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	ex := approvedExtraction()
	ex.FirstName = "JANE"
	ex.LastName = " doe "
	ex.Address = "12   oak  ST"

	res := Reconcile(Input{
		PhoneFromFilename: "5551234567",
		Lookup:            LookupFound,
		Identity: &model.IdentityRecord{
			PhoneNumber: "5551234567",
			FirstName:   "Jane",
			LastName:    "Doe",
			Address:     "12 Oak St",
		},
		Extracted: ex,
	})

	require.NotNil(t, res.Verification.NameMatches)
	assert.True(t, *res.Verification.NameMatches)
	require.NotNil(t, res.Verification.AddressMatches)
	assert.True(t, *res.Verification.AddressMatches)
	assert.Empty(t, res.SuggestedName)
	assert.False(t, res.NeedsManualReview)
}

func TestReconcile_StateMismatchAddsNoReason(t *testing.T) {
	t.Parallel()

	ex := approvedExtraction()
	ex.State = "Nevada"

	res := Reconcile(Input{
		PhoneFromFilename: "5551234567",
		Lookup:            LookupFound,
		Identity:          &model.IdentityRecord{PhoneNumber: "5551234567", State: "CA"},
		Extracted:         ex,
	})
	require.NotNil(t, res.Verification.StateMatches)
	assert.False(t, *res.Verification.StateMatches)
	assert.False(t, res.NeedsManualReview)

	ex.State = "california"
	res = Reconcile(Input{
		PhoneFromFilename: "5551234567",
		Lookup:            LookupFound,
		Identity:          &model.IdentityRecord{PhoneNumber: "5551234567", State: "CA"},
		Extracted:         ex,
	})
	require.NotNil(t, res.Verification.StateMatches)
	assert.True(t, *res.Verification.StateMatches)
}

func TestReconcile_LookupOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		outcome       LookupOutcome
		wantAttempted bool
		wantReasons   []string
	}{
		{"skipped", LookupSkipped, false, []string{ReasonNoPhone}},
		{"disabled", LookupDisabled, false, []string{ReasonLookupDisabled}},
		{"failed", LookupFailed, true, []string{ReasonLookupFailed}},
		{"no data", LookupNoData, true, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Reconcile(Input{Lookup: tt.outcome, Extracted: approvedExtraction()})
			assert.Equal(t, tt.wantAttempted, res.LookupAttempted)
			assert.Equal(t, tt.wantReasons, res.ManualReviewReasons)
			assert.Equal(t, len(tt.wantReasons) > 0, res.NeedsManualReview)
			assert.Nil(t, res.Identity)
		})
	}
}

func TestReconcile_IdentityIgnoredUnlessFound(t *testing.T) {
	t.Parallel()

	res := Reconcile(Input{
		Lookup:    LookupFailed,
		Identity:  &model.IdentityRecord{FirstName: "Ghost"},
		Extracted: approvedExtraction(),
	})
	assert.Nil(t, res.Identity)
	assert.Empty(t, res.FirstName)
}

func TestReconcile_LookupFailureForcesReviewOnApproved(t *testing.T) {
	t.Parallel()

	res := Reconcile(Input{
		PhoneFromFilename: "5551234567",
		Lookup:            LookupFailed,
		Extracted:         approvedExtraction(),
	})

	assert.Equal(t, model.ClassificationApproved, res.Status)
	assert.True(t, res.NeedsManualReview)
	assert.Equal(t, []string{ReasonLookupFailed}, res.ManualReviewReasons)
	assert.False(t, res.Actionable())
}

func TestReconcile_InvalidZip(t *testing.T) {
	t.Parallel()

	res := Reconcile(Input{
		PhoneFromFilename: "5551234567",
		Lookup:            LookupFound,
		Identity:          &model.IdentityRecord{PhoneNumber: "5551234567", Zip: "1234"},
		Extracted:         approvedExtraction(),
	})

	assert.True(t, res.InvalidZip)
	assert.Equal(t, "1234", res.Zip)
	assert.Equal(t, []string{ReasonInvalidZip}, res.ManualReviewReasons)
}

func TestReconcile_ReasonsAccumulateInOrder(t *testing.T) {
	t.Parallel()

	ex := approvedExtraction()
	ex.Classification = model.ClassificationNeedsReview
	ex.Address = "99 Elm Ave"
	ex.Zip = "99999"
	ex.MissingInformation = []string{"address", "vehicle"}
	ex.DataDiscrepancies = []string{"Caller gave a different street"}

	res := Reconcile(Input{
		PhoneFromFilename: "5551234567",
		Lookup:            LookupFound,
		Identity: &model.IdentityRecord{
			PhoneNumber: "5551234567",
			Address:     "12 Oak St",
			Zip:         "123",
		},
		Extracted: ex,
	})

	assert.Equal(t, []string{
		ReasonInvalidZip,
		"Missing: address",
		"Missing: vehicle",
		"Caller gave a different street",
		ReasonAddressMismatch,
		ReasonZipMismatch,
	}, res.ManualReviewReasons)
	assert.Equal(t, "99 Elm Ave", res.SuggestedAddress)
	assert.Equal(t, model.ClassificationNeedsReview, res.Status)
}

func TestReconcile_InsuranceIsTranscriptOnly(t *testing.T) {
	t.Parallel()

	yes := true
	size := 3
	ex := approvedExtraction()
	ex.AutoInsurance = model.AutoInsurance{
		MainVehicle:     &model.Vehicle{Year: "2019", Make: "Honda", Model: "Civic"},
		CurrentProvider: "Geico",
	}
	ex.HomeInsurance = model.HomeInsurance{Interested: &yes, Ownership: "Own"}
	ex.HealthInsurance = model.HealthInsurance{HouseholdSize: &size}
	ex.AgentFeedback = model.AgentFeedback{AskedFullName: true}

	res := Reconcile(Input{Lookup: LookupNoData, Extracted: ex})

	assert.Equal(t, ex.AutoInsurance, res.AutoInsurance)
	assert.Equal(t, ex.HomeInsurance, res.HomeInsurance)
	assert.Equal(t, ex.HealthInsurance, res.HealthInsurance)
	assert.Equal(t, ex.AgentFeedback, res.AgentFeedback)
	assert.Nil(t, res.HealthInsurance.Interested)
}

func TestReconcile_Idempotent(t *testing.T) {
	t.Parallel()

	ex := approvedExtraction()
	ex.FirstName = "Janet"
	ex.Zip = "12345"
	ex.MissingInformation = []string{"date of birth"}
	in := Input{
		PhoneFromFilename: "5551234567",
		Lookup:            LookupFound,
		Identity: &model.IdentityRecord{
			PhoneNumber: "5551234567",
			FirstName:   "Jane",
			Zip:         "12345-0001",
		},
		Extracted:  ex,
		Transcript: "[Speaker:0] hello",
	}

	first, err := json.Marshal(Reconcile(in))
	require.NoError(t, err)
	second, err := json.Marshal(Reconcile(in))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReconcile_DoesNotAliasInput(t *testing.T) {
	t.Parallel()

	ex := approvedExtraction()
	id := &model.IdentityRecord{PhoneNumber: "5551234567", FirstName: "Jane"}
	res := Reconcile(Input{Lookup: LookupFound, Identity: id, Extracted: ex})

	res.Reasons[0] = "changed"
	res.Identity.FirstName = "changed"
	assert.Equal(t, "Caller asked for an auto quote", ex.Reasons[0])
	assert.Equal(t, "Jane", id.FirstName)
}

func TestReconcile_ReviewFlagMatchesReasons(t *testing.T) {
	t.Parallel()

	inputs := []Input{
		{Lookup: LookupSkipped, Extracted: approvedExtraction()},
		{Lookup: LookupNoData, Extracted: approvedExtraction()},
		{Lookup: LookupFound, Identity: &model.IdentityRecord{Zip: "abc"}, Extracted: approvedExtraction()},
	}
	for _, in := range inputs {
		res := Reconcile(in)
		assert.Equal(t, len(res.ManualReviewReasons) > 0, res.NeedsManualReview)
	}
}

func TestLookupOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "skipped", LookupSkipped.String())
	assert.Equal(t, "found", LookupFound.String())
	assert.Equal(t, "unknown", LookupOutcome(42).String())
}

func TestReasonCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason string
		want   string
	}{
		{ReasonNoPhone, "no_phone"},
		{ReasonLookupDisabled, "lookup_disabled"},
		{ReasonLookupFailed, "lookup_failed"},
		{ReasonInvalidZip, "invalid_zip"},
		{ReasonNameMismatch, "name_mismatch"},
		{ReasonAddressMismatch, "address_mismatch"},
		{ReasonZipMismatch, "zip_mismatch"},
		{"Missing: date of birth", "missing"},
		{"Caller gave two different ZIP codes", "discrepancy"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReasonCategory(tt.reason), tt.reason)
	}
}
