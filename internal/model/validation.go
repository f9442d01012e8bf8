package model

// VerificationStatus holds per-field comparisons between the identity record
// and the transcript. A nil flag means the field was not comparable because
// one side was empty, which is distinct from a mismatch.
type VerificationStatus struct {
	NameMatches    *bool `json:"name_matches,omitempty"`
	AddressMatches *bool `json:"address_matches,omitempty"`
	ZipMatches     *bool `json:"zip_matches,omitempty"`
	StateMatches   *bool `json:"state_matches,omitempty"`

	// Informational only; never part of the review verdict.
	NameSimilarity    *float64 `json:"name_similarity,omitempty"`
	NamePhoneticMatch *bool    `json:"name_phonetic_match,omitempty"`
}

// ValidationResult is the reconciled outcome for one call recording.
type ValidationResult struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DOB         string `json:"dob"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
	Email       string `json:"email"`

	SuggestedName    string `json:"suggested_name,omitempty"`
	SuggestedAddress string `json:"suggested_address,omitempty"`

	AutoInsurance   AutoInsurance   `json:"auto_insurance"`
	HomeInsurance   HomeInsurance   `json:"home_insurance"`
	HealthInsurance HealthInsurance `json:"health_insurance"`
	AgentFeedback   AgentFeedback   `json:"agent_feedback"`

	Identity        *IdentityRecord    `json:"identity,omitempty"`
	LookupAttempted bool               `json:"lookup_attempted"`
	Verification    VerificationStatus `json:"verification"`

	Status              Classification `json:"status"`
	ConfidenceScore     float64        `json:"confidence_score"`
	Reasons             []string       `json:"reasons"`
	MissingInformation  []string       `json:"missing_information"`
	DataDiscrepancies   []string       `json:"data_discrepancies"`
	NeedsManualReview   bool           `json:"needs_manual_review"`
	ManualReviewReasons []string       `json:"manual_review_reasons"`
	InvalidZip          bool           `json:"invalid_zip"`

	Transcript string `json:"transcript,omitempty"`
}

// FlagForReview appends a review reason and marks the result for manual
// review. It is the only way NeedsManualReview becomes true.
func (v *ValidationResult) FlagForReview(reason string) {
	v.ManualReviewReasons = append(v.ManualReviewReasons, reason)
	v.NeedsManualReview = true
}

// Actionable reports whether the lead can be exported without a human
// looking at it first.
func (v *ValidationResult) Actionable() bool {
	return v.Status == ClassificationApproved && !v.NeedsManualReview
}

// FullName joins the merged first and last name.
func (v *ValidationResult) FullName() string {
	return joinName(v.FirstName, v.LastName)
}
