// Package identity resolves a caller's phone number to a verified contact
// record.
package identity

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/pkg/melissa"
)

// Resolver looks up the identity behind a phone number. A nil record with a
// nil error means the service had no match.
type Resolver interface {
	Lookup(ctx context.Context, phone string) (*model.IdentityRecord, error)
}

// Melissa resolves identities with Melissa Personator.
type Melissa struct {
	client melissa.Client
}

// NewMelissa wraps a Personator client as a Resolver.
func NewMelissa(client melissa.Client) *Melissa {
	return &Melissa{client: client}
}

// Lookup issues exactly one ContactVerify request for phone.
func (m *Melissa) Lookup(ctx context.Context, phone string) (*model.IdentityRecord, error) {
	log := zap.L().With(zap.String("phone", phone))
	log.Info("identity: lookup attempted")

	resp, err := m.client.ContactVerify(ctx, phone)
	if err != nil {
		log.Warn("identity: lookup failed", zap.Error(err))
		return nil, eris.Wrap(err, "identity: melissa lookup")
	}
	if len(resp.Records) == 0 {
		log.Info("identity: no data")
		return nil, nil
	}

	rec := FromRecord(phone, resp.Records[0])
	log.Info("identity: lookup succeeded",
		zap.Bool("name_found", rec.NameFound),
		zap.Bool("address_found", rec.AddressFound),
		zap.Bool("name_verified", rec.NameVerified),
		zap.Bool("address_verified", rec.AddressVerified),
	)
	return rec, nil
}

// FromRecord normalizes a Personator record. A field is found only when the
// service returned a non-empty value for it.
func FromRecord(phone string, r melissa.Record) *model.IdentityRecord {
	out := &model.IdentityRecord{PhoneNumber: phone}

	if r.Name != nil {
		out.FirstName = strings.TrimSpace(r.Name.FirstName)
		out.LastName = strings.TrimSpace(r.Name.LastName)
	}
	if out.FirstName == "" && out.LastName == "" {
		out.FirstName, out.LastName = splitFullName(r.NameFull)
	}

	var nested melissa.Address
	if r.Address != nil {
		nested = *r.Address
	}
	out.Address = firstNonEmpty(r.AddressLine1, nested.AddressLine1)
	out.City = firstNonEmpty(r.City, nested.City)
	out.State = firstNonEmpty(r.State, nested.State)
	out.Zip = firstNonEmpty(r.PostalCode, nested.PostalCode)
	out.Email = strings.TrimSpace(r.EmailAddress)
	out.DOB = NormalizeDOB(r)

	out.NameFound = out.FirstName != "" || out.LastName != ""
	out.AddressFound = out.Address != ""
	out.NameVerified, out.AddressVerified = verified(r.ResultCodes(), out.NameFound, out.AddressFound)
	return out
}

// verified reads the service's own assertions from its result codes. When
// the record carries no codes, Personator's Append mode only returns data it
// has matched to the phone, so a returned value is the assertion.
func verified(codes []string, nameFound, addressFound bool) (name, address bool) {
	if len(codes) == 0 {
		return nameFound, addressFound
	}
	for _, c := range codes {
		switch {
		case c == "AS01", c == "AS02", c == "AS03", c == "DA00":
			address = true
		case c == "DA10", strings.HasPrefix(c, "VR"):
			name = true
		}
	}
	return name && nameFound, address && addressFound
}

func splitFullName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	first, last, _ = strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
