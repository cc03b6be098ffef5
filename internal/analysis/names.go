package analysis

import (
	"strconv"
	"strings"
)

// CleanName strips the decoration a metric column name may carry: a trailing
// spreadsheet dedup suffix (".1", ".2", ...) and percent markers. "System Issue %.1"
// and "System Issue.1" both clean to "System Issue".
func CleanName(name string) string {
	s := strings.TrimSpace(name)
	for {
		next := stripDedupSuffix(s)
		next = strings.TrimSpace(strings.TrimSuffix(next, "%"))
		if next == s {
			return s
		}
		s = next
	}
}

// IsPercentDecorated reports whether the raw column name ends in "%". A dedup
// suffix hides the marker: "Maintenance %.1" is not decorated.
func IsPercentDecorated(name string) bool {
	return strings.HasSuffix(strings.TrimSpace(name), "%")
}

// stripDedupSuffix removes one trailing ".N" where N is all digits.
func stripDedupSuffix(s string) string {
	i := strings.LastIndex(s, ".")
	if i < 0 || i == len(s)-1 {
		return s
	}
	for _, r := range s[i+1:] {
		if r < '0' || r > '9' {
			return s
		}
	}
	return strings.TrimSpace(s[:i])
}

// SameMetric compares two metric names after cleaning, case-insensitively.
func SameMetric(a, b string) bool {
	return strings.EqualFold(CleanName(a), CleanName(b))
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func containsAnyFold(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && containsFold(s, sub) {
			return true
		}
	}
	return false
}

// parseNumeric parses a spreadsheet number rendered as text. Percent signs are
// dropped; the caller decides whether to rescale. Decimal and thousands separators
// are auto-detected.
func parseNumeric(s string) (float64, bool) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := '.'
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	if cpos >= 0 && (dpos < 0 || cpos > dpos) {
		dec = ','
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
