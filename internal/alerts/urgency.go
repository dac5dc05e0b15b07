package alerts

import "strings"

const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

var urgencyRank = map[string]int{
	UrgencyLow:      1,
	UrgencyMedium:   2,
	UrgencyHigh:     3,
	UrgencyCritical: 4,
}

// NormalizeUrgency lower-cases level and reports whether it is known.
func NormalizeUrgency(level string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(level))
	_, ok := urgencyRank[normalized]
	return normalized, ok
}

// HigherUrgency returns whichever level ranks higher; unknown levels rank lowest.
func HigherUrgency(a, b string) string {
	if urgencyRank[b] > urgencyRank[a] {
		return b
	}
	return a
}
