package reconcile

import (
	"strings"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/internal/zipcode"
)

// Compare computes the per-field verification flags. A flag is set only when
// both the identity value and the transcript value are non-empty.
func Compare(id *model.IdentityRecord, ex *model.ExtractedFields) model.VerificationStatus {
	var v model.VerificationStatus
	if id == nil || ex == nil {
		return v
	}

	if a, b := id.FullName(), ex.FullName(); a != "" && b != "" {
		v.NameMatches = boolPtr(Equal(a, b))
		sim := NameSimilarity(a, b)
		v.NameSimilarity = &sim
		v.NamePhoneticMatch = boolPtr(PhoneticMatch(a, b))
	}
	if id.Address != "" && ex.Address != "" {
		v.AddressMatches = boolPtr(Equal(id.Address, ex.Address))
	}
	if id.Zip != "" && ex.Zip != "" {
		// Spoken ZIPs arrive as "1 2 3 4 5" or "zip 12345".
		v.ZipMatches = boolPtr(zipcode.Prefix5(id.Zip) == zipcode.Clean(ex.Zip))
	}
	if id.State != "" && ex.State != "" {
		v.StateMatches = boolPtr(stateCode(id.State) == stateCode(ex.State))
	}
	return v
}

// Normalize applies NFKC, case folding and whitespace collapsing.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Equal compares two strings ignoring case and whitespace differences.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// NameSimilarity returns the Jaro-Winkler similarity of two normalized names.
func NameSimilarity(a, b string) float64 {
	return matchr.JaroWinkler(Normalize(a), Normalize(b), false)
}

// PhoneticMatch reports whether every token of both names shares a Double
// Metaphone code, so "Jon Smith" and "John Smyth" match.
func PhoneticMatch(a, b string) bool {
	ta, tb := strings.Fields(Normalize(a)), strings.Fields(Normalize(b))
	if len(ta) == 0 || len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		p1, s1 := matchr.DoubleMetaphone(ta[i])
		p2, s2 := matchr.DoubleMetaphone(tb[i])
		if !codesOverlap([]string{p1, s1}, []string{p2, s2}) {
			return false
		}
	}
	return true
}

func codesOverlap(a, b []string) bool {
	for _, x := range a {
		if x == "" {
			continue
		}
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func boolPtr(b bool) *bool { return &b }

// stateToAbbr maps lowercase full state names to lowercase USPS codes.
var stateToAbbr = map[string]string{
	"alabama": "al", "alaska": "ak", "arizona": "az", "arkansas": "ar",
	"california": "ca", "colorado": "co", "connecticut": "ct", "delaware": "de",
	"florida": "fl", "georgia": "ga", "hawaii": "hi", "idaho": "id",
	"illinois": "il", "indiana": "in", "iowa": "ia", "kansas": "ks",
	"kentucky": "ky", "louisiana": "la", "maine": "me", "maryland": "md",
	"massachusetts": "ma", "michigan": "mi", "minnesota": "mn", "mississippi": "ms",
	"missouri": "mo", "montana": "mt", "nebraska": "ne", "nevada": "nv",
	"new hampshire": "nh", "new jersey": "nj", "new mexico": "nm", "new york": "ny",
	"north carolina": "nc", "north dakota": "nd", "ohio": "oh", "oklahoma": "ok",
	"oregon": "or", "pennsylvania": "pa", "rhode island": "ri", "south carolina": "sc",
	"south dakota": "sd", "tennessee": "tn", "texas": "tx", "utah": "ut",
	"vermont": "vt", "virginia": "va", "washington": "wa", "west virginia": "wv",
	"wisconsin": "wi", "wyoming": "wy", "district of columbia": "dc",
}

// stateCode normalizes a state name or abbreviation to its lowercase code.
// Unknown values are returned normalized.
func stateCode(s string) string {
	n := strings.TrimSuffix(Normalize(s), ".")
	if abbr, ok := stateToAbbr[n]; ok {
		return abbr
	}
	return n
}
