// Package model defines the records that flow through the lead validation
// pipeline: the identity lookup result, the transcript extraction, the
// reconciled validation result and the run bookkeeping around them.
package model

// IdentityRecord is the normalized contact record returned by the
// phone-keyed identity lookup. Empty strings mean the service returned no
// value for that field.
type IdentityRecord struct {
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Zip         string `json:"zip,omitempty"`
	Email       string `json:"email,omitempty"`
	DOB         string `json:"dob,omitempty"`

	NameFound       bool `json:"name_found"`
	AddressFound    bool `json:"address_found"`
	NameVerified    bool `json:"name_verified"`
	AddressVerified bool `json:"address_verified"`
}

// FullName joins first and last name with a single space.
func (r *IdentityRecord) FullName() string {
	if r == nil {
		return ""
	}
	return joinName(r.FirstName, r.LastName)
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
