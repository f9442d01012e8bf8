package identity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/lead-validator/pkg/melissa"
)

// NormalizeDOB renders the record's date of birth as MM/DD/YYYY. Missing
// month or day default to 01. Unrecognized values are returned trimmed.
func NormalizeDOB(r melissa.Record) string {
	for _, raw := range []melissa.Flex{r.DateOfBirth, r.DOB, r.BirthDate} {
		if s := strings.TrimSpace(string(raw)); s != "" {
			return normalizeDate(s)
		}
	}
	if year := string(r.BirthYear); year != "" {
		return formatDOB(year, string(r.BirthMonth), string(r.BirthDay))
	}
	return ""
}

func normalizeDate(s string) string {
	switch {
	case isDigits(s) && len(s) == 4:
		return formatDOB(s, "", "")
	case isDigits(s) && len(s) == 6:
		return formatDOB(s[:4], s[4:6], "")
	case isDigits(s) && len(s) == 8:
		return formatDOB(s[:4], s[4:6], s[6:8])
	}

	if parts := strings.Split(s, "-"); len(parts) >= 2 && len(parts[0]) == 4 {
		day := ""
		if len(parts) > 2 {
			day = strings.SplitN(parts[2], "T", 2)[0]
		}
		return formatDOB(parts[0], parts[1], day)
	}
	if parts := strings.Split(s, "/"); len(parts) == 3 && len(parts[2]) == 4 {
		return formatDOB(parts[2], parts[0], parts[1])
	}
	return s
}

func formatDOB(year, month, day string) string {
	return fmt.Sprintf("%s/%s/%s", pad2(month, 12), pad2(day, 31), year)
}

// pad2 zero-pads a component in 1..upper, defaulting empty or out of range
// input to 01.
func pad2(s string, upper int) string {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 || n > upper {
		return "01"
	}
	return fmt.Sprintf("%02d", n)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
