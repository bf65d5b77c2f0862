package profile

import (
	"strconv"
	"strings"
	"time"
)

// ParseNumeric parses a numeric token, accepting thousands separators
// ("1,234.5") and surrounding whitespace. Separators are accepted only in
// well-formed groups of three; "1,2,34" is not a number.
func ParseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		var ok bool
		s, ok = stripThousands(s)
		if !ok {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// stripThousands removes comma separators when every group left of the
// decimal point has exactly three digits (the leading group one to three).
func stripThousands(s string) (string, bool) {
	intPart, rest := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, rest = s[:i], s[i:]
	}
	if strings.Contains(rest, ",") {
		return "", false
	}
	sign := ""
	if strings.HasPrefix(intPart, "-") || strings.HasPrefix(intPart, "+") {
		sign, intPart = intPart[:1], intPart[1:]
	}
	groups := strings.Split(intPart, ",")
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return sign + strings.Join(groups, "") + rest, true
}

// booleanSets are the token pairs recognized as boolean columns. Matching
// is case-insensitive over the distinct tokens of a column.
var booleanSets = [][2]string{
	{"true", "false"},
	{"yes", "no"},
	{"y", "n"},
	{"t", "f"},
}

// ParseBool parses a boolean token from any of the recognized pairs.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "t":
		return true, true
	case "false", "no", "n", "f":
		return false, true
	default:
		return false, false
	}
}

// ParseTime parses a datetime token against the configured layouts, in
// order. The matching layout is returned so callers can pin one layout
// for a whole column.
func ParseTime(s string, layouts []string) (time.Time, string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, true
		}
	}
	return time.Time{}, "", false
}

// ParseTimeLayout parses a datetime token against a single pinned layout.
func ParseTimeLayout(s, layout string) (time.Time, bool) {
	t, err := time.Parse(layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MissingTokenSet builds a case-insensitive lookup of missing-value
// sentinels from the configured token list.
func MissingTokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return set
}

// IsMissingToken reports whether a trimmed, lowercased token is one of
// the configured sentinels. The empty string always counts as missing.
func IsMissingToken(s string, set map[string]bool) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return true
	}
	return set[s]
}
