// Package callerid derives the caller's phone number from a recording's file
// name.
package callerid

import "path/filepath"

// PhoneLength is the number of digits in a US phone number without the
// country code.
const PhoneLength = 10

// FromFilename returns the first maximal run of exactly ten consecutive
// digits in the base name of path. Longer or shorter runs are skipped. An
// empty string means no phone number is available.
func FromFilename(path string) string {
	name := filepath.Base(path)
	start := -1
	for i := 0; i <= len(name); i++ {
		isDigit := i < len(name) && name[i] >= '0' && name[i] <= '9'
		switch {
		case isDigit && start < 0:
			start = i
		case !isDigit && start >= 0:
			if i-start == PhoneLength {
				return name[start:i]
			}
			start = -1
		}
	}
	return ""
}
