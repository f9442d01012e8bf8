package model

// Classification is the lead verdict reported by the extraction model.
type Classification string

const (
	ClassificationApproved    Classification = "approved"
	ClassificationRejected    Classification = "rejected"
	ClassificationNeedsReview Classification = "needs_review"
)

// Valid reports whether c is one of the known classifications.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationApproved, ClassificationRejected, ClassificationNeedsReview:
		return true
	default:
		return false
	}
}

// VehicleCorrection is the model's suggested fix for a vehicle that was
// heard but does not look like a real year/make/model.
type VehicleCorrection struct {
	Year   string `json:"year,omitempty"`
	Make   string `json:"make,omitempty"`
	Model  string `json:"model,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Vehicle is a vehicle as stated by the caller.
type Vehicle struct {
	Year                string             `json:"year"`
	Make                string             `json:"make"`
	Model               string             `json:"model"`
	Confidence          *float64           `json:"confidence,omitempty"`
	SuggestedCorrection *VehicleCorrection `json:"suggested_correction,omitempty"`
}

// Empty reports whether no part of the vehicle was captured.
func (v *Vehicle) Empty() bool {
	return v == nil || (v.Year == "" && v.Make == "" && v.Model == "")
}

// AutoInsurance holds auto-line intake fields.
type AutoInsurance struct {
	MainVehicle      *Vehicle `json:"main_vehicle,omitempty"`
	SecondaryVehicle *Vehicle `json:"secondary_vehicle,omitempty"`
	CurrentProvider  string   `json:"current_provider,omitempty"`
}

// HomeInsurance holds home-line intake fields. A nil Interested means the
// call never touched the subject; false means the caller declined.
type HomeInsurance struct {
	Interested      *bool  `json:"interested"`
	Ownership       string `json:"ownership,omitempty"`
	HomeType        string `json:"home_type,omitempty"`
	CurrentProvider string `json:"current_provider,omitempty"`
}

// HealthInsurance holds health-line intake fields. Nil pointers mean not
// detected.
type HealthInsurance struct {
	Interested      *bool  `json:"interested"`
	HouseholdSize   *int   `json:"household_size"`
	CurrentProvider string `json:"current_provider,omitempty"`
}

// AgentFeedback records which required intake questions the agent asked.
type AgentFeedback struct {
	AskedCallbackNumber   bool `json:"asked_callback_number"`
	AskedFullName         bool `json:"asked_full_name"`
	AskedVehicleDetails   bool `json:"asked_vehicle_details"`
	AskedSecondaryVehicle bool `json:"asked_secondary_vehicle"`
	AskedCurrentProvider  bool `json:"asked_current_provider"`
	AskedOwnOrRent        bool `json:"asked_own_or_rent"`
	AskedDOB              bool `json:"asked_dob"`
	AskedAddress          bool `json:"asked_address"`
}

// Missed returns the labels of the questions the agent skipped, in a fixed
// order.
func (f AgentFeedback) Missed() []string {
	var out []string
	for _, q := range []struct {
		asked bool
		label string
	}{
		{f.AskedCallbackNumber, "callback number"},
		{f.AskedFullName, "full name"},
		{f.AskedVehicleDetails, "vehicle year/make/model"},
		{f.AskedSecondaryVehicle, "secondary vehicle"},
		{f.AskedCurrentProvider, "current provider"},
		{f.AskedOwnOrRent, "own or rent"},
		{f.AskedDOB, "date of birth"},
		{f.AskedAddress, "address"},
	} {
		if !q.asked {
			out = append(out, q.label)
		}
	}
	return out
}

// ExtractedFields is everything the language model derived from the call
// transcript. Identity data never flows into these fields.
type ExtractedFields struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DOB         string `json:"dob,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Address     string `json:"address,omitempty"`
	Zip         string `json:"zip,omitempty"`
	State       string `json:"state,omitempty"`
	Email       string `json:"email,omitempty"`

	AutoInsurance   AutoInsurance   `json:"auto_insurance"`
	HomeInsurance   HomeInsurance   `json:"home_insurance"`
	HealthInsurance HealthInsurance `json:"health_insurance"`
	AgentFeedback   AgentFeedback   `json:"agent_feedback"`

	Classification     Classification `json:"classification"`
	ConfidenceScore    float64        `json:"confidence_score"`
	Reasons            []string       `json:"reasons"`
	MissingInformation []string       `json:"missing_information"`
	DataDiscrepancies  []string       `json:"data_discrepancies"`
}

// FullName joins the extracted first and last name.
func (e *ExtractedFields) FullName() string {
	return joinName(e.FirstName, e.LastName)
}
