// Package zipcode validates and normalizes US ZIP codes.
package zipcode

import (
	"regexp"
	"strings"
)

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// IsValid reports whether s is a 5-digit ZIP or a ZIP+4 (12345-6789).
func IsValid(s string) bool {
	return zipPattern.MatchString(s)
}

// Prefix5 returns the 5-digit portion of a ZIP or ZIP+4, ignoring
// surrounding whitespace. Anything that does not start with five digits is
// returned trimmed and otherwise unchanged.
func Prefix5(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 5 && isDigits(s[:5]) {
		return s[:5]
	}
	return s
}

// Clean strips every non-digit and keeps the first five digits when at least
// five are present.
func Clean(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) >= 5 {
		return digits[:5]
	}
	return digits
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
