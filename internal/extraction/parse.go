package extraction

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-validator/internal/model"
)

// DefaultConfidence is used when the model omits confidence_score.
const DefaultConfidence = 0.8

// wireResponse mirrors the JSON object requested in SystemPrompt.
type wireResponse struct {
	Classification     string       `json:"classification"`
	ConfidenceScore    *float64     `json:"confidence_score"`
	Reasons            []string     `json:"reasons"`
	ExtractedData      wireData     `json:"extracted_data"`
	AgentFeedback      wireFeedback `json:"agent_feedback"`
	MissingInformation []string     `json:"missing_information"`
	DataDiscrepancies  []string     `json:"data_discrepancies"`
}

type wireData struct {
	FirstName   looseString `json:"first_name"`
	LastName    looseString `json:"last_name"`
	DateOfBirth looseString `json:"date_of_birth"`
	PhoneNumber looseString `json:"phone_number"`
	Address     looseString `json:"address"`
	ZipCode     looseString `json:"zip_code"`
	State       looseString `json:"state"`
	Email       looseString `json:"email"`

	AutoInsurance struct {
		MainVehicle      *wireVehicle `json:"main_vehicle"`
		SecondaryVehicle *wireVehicle `json:"secondary_vehicle"`
		CurrentProvider  looseString  `json:"current_provider"`
	} `json:"auto_insurance"`

	HomeInsurance struct {
		Interested      *bool       `json:"interested"`
		Ownership       looseString `json:"ownership"`
		HomeType        looseString `json:"home_type"`
		CurrentProvider looseString `json:"current_provider"`
	} `json:"home_insurance"`

	HealthInsurance struct {
		Interested      *bool       `json:"interested"`
		HouseholdSize   *looseInt   `json:"household_size"`
		CurrentProvider looseString `json:"current_provider"`
	} `json:"health_insurance"`
}

type wireVehicle struct {
	Year                looseString `json:"year"`
	Make                looseString `json:"make"`
	Model               looseString `json:"model"`
	Confidence          *float64    `json:"confidence"`
	SuggestedCorrection *struct {
		Year   looseString `json:"year"`
		Make   looseString `json:"make"`
		Model  looseString `json:"model"`
		Reason looseString `json:"reason"`
	} `json:"suggested_correction"`
}

type wireFeedback struct {
	AskedCallbackNumber   bool `json:"asked_callback_number"`
	AskedFullName         bool `json:"asked_full_name"`
	AskedVehicleDetails   bool `json:"asked_vehicle_details"`
	AskedSecondaryVehicle bool `json:"asked_secondary_vehicle"`
	AskedCurrentProvider  bool `json:"asked_current_provider"`
	AskedOwnOrRent        bool `json:"asked_own_or_rent"`
	AskedDOB              bool `json:"asked_dob"`
	AskedAddress          bool `json:"asked_address"`
}

// looseString accepts a JSON string, number or null. Models sometimes emit
// vehicle years and zip codes as numbers.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return eris.Errorf("extraction: expected string or number, got %s", b)
	}
	*s = looseString(n.String())
	return nil
}

// looseInt accepts a JSON number or a numeric string.
type looseInt int

func (i *looseInt) UnmarshalJSON(b []byte) error {
	var s looseString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*i = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return eris.Wrapf(err, "extraction: parse integer %q", string(s))
	}
	*i = looseInt(f)
	return nil
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// Parse decodes a model response into ExtractedFields. Any decoding failure
// is returned as an error; there is no partial result.
func Parse(text string) (model.ExtractedFields, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return model.ExtractedFields{}, eris.New("extraction: empty response")
	}

	var w wireResponse
	if err := json.Unmarshal([]byte(cleaned), &w); err != nil {
		return model.ExtractedFields{}, eris.Wrap(err, "extraction: parse response json")
	}

	d := w.ExtractedData
	out := model.ExtractedFields{
		FirstName:   string(d.FirstName),
		LastName:    string(d.LastName),
		DOB:         string(d.DateOfBirth),
		PhoneNumber: string(d.PhoneNumber),
		Address:     string(d.Address),
		Zip:         string(d.ZipCode),
		State:       string(d.State),
		Email:       string(d.Email),
		AutoInsurance: model.AutoInsurance{
			MainVehicle:      toVehicle(d.AutoInsurance.MainVehicle),
			SecondaryVehicle: toVehicle(d.AutoInsurance.SecondaryVehicle),
			CurrentProvider:  string(d.AutoInsurance.CurrentProvider),
		},
		HomeInsurance: model.HomeInsurance{
			Interested:      d.HomeInsurance.Interested,
			Ownership:       string(d.HomeInsurance.Ownership),
			HomeType:        string(d.HomeInsurance.HomeType),
			CurrentProvider: string(d.HomeInsurance.CurrentProvider),
		},
		HealthInsurance: model.HealthInsurance{
			Interested:      d.HealthInsurance.Interested,
			CurrentProvider: string(d.HealthInsurance.CurrentProvider),
		},
		AgentFeedback:      model.AgentFeedback(w.AgentFeedback),
		Classification:     normalizeClassification(w.Classification),
		ConfidenceScore:    confidence(w.ConfidenceScore),
		Reasons:            nonEmpty(w.Reasons),
		MissingInformation: nonEmpty(w.MissingInformation),
		DataDiscrepancies:  nonEmpty(w.DataDiscrepancies),
	}
	if hs := d.HealthInsurance.HouseholdSize; hs != nil && *hs > 0 {
		n := int(*hs)
		out.HealthInsurance.HouseholdSize = &n
	}
	if !out.Classification.Valid() {
		out.Reasons = append(out.Reasons, "Unrecognized classification: "+w.Classification)
		out.Classification = model.ClassificationNeedsReview
	}
	return out, nil
}

func toVehicle(w *wireVehicle) *model.Vehicle {
	if w == nil {
		return nil
	}
	v := &model.Vehicle{
		Year:       string(w.Year),
		Make:       string(w.Make),
		Model:      string(w.Model),
		Confidence: w.Confidence,
	}
	if c := w.SuggestedCorrection; c != nil {
		corr := model.VehicleCorrection{
			Year:   string(c.Year),
			Make:   string(c.Make),
			Model:  string(c.Model),
			Reason: string(c.Reason),
		}
		if corr != (model.VehicleCorrection{}) {
			v.SuggestedCorrection = &corr
		}
	}
	if v.Empty() && v.SuggestedCorrection == nil {
		return nil
	}
	return v
}

func normalizeClassification(s string) model.Classification {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return model.Classification(s)
}

// confidence returns the model's score clamped to [0,1], or
// DefaultConfidence when it is absent or zero.
func confidence(v *float64) float64 {
	if v == nil || *v == 0 {
		return DefaultConfidence
	}
	switch {
	case *v < 0:
		return 0
	case *v > 1:
		return 1
	}
	return *v
}

// nonEmpty drops blank entries, which models emit when copying the schema's
// placeholder arrays. The result is never nil.
func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
