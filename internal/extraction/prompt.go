package extraction

import (
	"fmt"
	"strings"
)

// IdentityHeading introduces the identity block in the user message.
const IdentityHeading = "Verified contact record (for comparison only, do not use for extraction)"

// SystemPrompt is the fixed instruction sent with every extraction request.
const SystemPrompt = `You review recorded insurance sales calls. You extract the caller's details and judge whether the call is a qualified lead.

You may receive two inputs:
1. A verified contact record from a phone lookup. It is provided for comparison only. Never copy a value from it into extracted_data.
2. The call transcript. Every value in extracted_data must come from what was actually said in the call.

Rules:
- Extract only what is explicitly stated. Leave a field empty when the caller did not say it. Never guess.
- If the transcript contradicts the verified contact record, describe the difference in data_discrepancies.
- If a vehicle make or model does not look real, keep what was heard and add a suggested_correction with a reason.
- "Not Insured" is a valid current_provider when the caller says they have no insurance.
- For interested fields use true when the caller wants a quote, false when they decline, and null when the subject never came up.

A lead may be "approved" only when all of these hold:
- the caller explicitly asks for an insurance quote;
- a name is known from the transcript or the contact record;
- an address or ZIP code is known from the transcript or the contact record;
- the transcript contains a vehicle description or confirms current auto coverage.
Otherwise classify it as "needs_review" with a confidence_score below 0.7. Use "rejected" for wrong numbers, hang-ups and callers who refuse a quote.

Also report which intake questions the agent asked in agent_feedback.

Respond with a single JSON object and nothing else:
{
  "classification": "approved|rejected|needs_review",
  "confidence_score": 0.0,
  "reasons": [""],
  "extracted_data": {
    "first_name": "",
    "last_name": "",
    "date_of_birth": "",
    "phone_number": "",
    "address": "",
    "zip_code": "",
    "state": "",
    "email": "",
    "auto_insurance": {
      "main_vehicle": {"year": "", "make": "", "model": "", "confidence": 0.0,
        "suggested_correction": {"year": "", "make": "", "model": "", "reason": ""}},
      "secondary_vehicle": {"year": "", "make": "", "model": "", "confidence": 0.0,
        "suggested_correction": {"year": "", "make": "", "model": "", "reason": ""}},
      "current_provider": ""
    },
    "home_insurance": {
      "interested": null,
      "ownership": "Rent|Own|",
      "home_type": "Apartment|Condo|Manufactured|Multi-Family|Single-Family|Townhome|",
      "current_provider": ""
    },
    "health_insurance": {
      "interested": null,
      "household_size": 0,
      "current_provider": ""
    }
  },
  "agent_feedback": {
    "asked_callback_number": false,
    "asked_full_name": false,
    "asked_vehicle_details": false,
    "asked_secondary_vehicle": false,
    "asked_current_provider": false,
    "asked_own_or_rent": false,
    "asked_dob": false,
    "asked_address": false
  },
  "missing_information": [""],
  "data_discrepancies": [""]
}`

// UserMessage renders the per-call user message.
func UserMessage(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Call transcript:\n%s\n\n", in.Transcript)
	fmt.Fprintf(&b, "Phone number from filename: %s\n", orNotFound(in.PhoneNumber))

	id := in.Identity
	if id == nil {
		b.WriteString("\nNo verified contact record available.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\n%s:\n", IdentityHeading)
	fmt.Fprintf(&b, "First Name: %s\n", orNotFound(id.FirstName))
	fmt.Fprintf(&b, "Last Name: %s\n", orNotFound(id.LastName))
	fmt.Fprintf(&b, "Address: %s\n", orNotFound(id.Address))
	fmt.Fprintf(&b, "City: %s\n", orNotFound(id.City))
	fmt.Fprintf(&b, "State: %s\n", orNotFound(id.State))
	fmt.Fprintf(&b, "ZIP: %s\n", orNotFound(id.Zip))
	fmt.Fprintf(&b, "Name Verified: %s\n", yesNo(id.NameVerified))
	fmt.Fprintf(&b, "Address Verified: %s\n", yesNo(id.AddressVerified))
	return b.String()
}

func orNotFound(s string) string {
	if s == "" {
		return "Not found"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
