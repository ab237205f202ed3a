package app

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	realtimeWords   = []string{"latest", "recent", "recently", "current", "currently", "news", "today", "now", "update", "updates", "breaking", "weather", "forecast", "happened", "developments", "tonight", "yesterday"}
	realtimePhrases = []string{"stock price", "who won", "this week", "this month", "this year", "right now"}

	yearPattern = regexp.MustCompile(`\b(20\d\d)\b`)
)

const firstRealtimeYear = 2024

// NeedsWebSearch reports whether a question asks for information that the
// uploaded documents are unlikely to hold.
func NeedsWebSearch(question string) bool {
	q := strings.ToLower(question)
	if matchesAny(q, realtimeWords) || matchesAny(q, realtimePhrases) {
		return true
	}
	for _, m := range yearPattern.FindAllStringSubmatch(q, -1) {
		if year, err := strconv.Atoi(m[1]); err == nil && year >= firstRealtimeYear {
			return true
		}
	}
	return false
}
