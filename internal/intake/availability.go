package intake

import (
	"regexp"
	"strings"
)

var (
	// Abbreviations count only with a dot, "-feira" or a following hour:
	// "ter", "qua" and "sex" are also ordinary words.
	weekdayRegex = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:(?:segunda|ter[cç]a|quarta|quinta|sexta)(?:-feira)?|(?:seg|ter|qua|qui|sex)(?:\.|-feira|\s*\d))(?:$|[^\p{L}])`)
	digitRun     = regexp.MustCompile(`\d+`)
)

// allowedHours are the on-site service hours.
var allowedHours = map[string]bool{"15": true, "16": true, "17": true, "18": true}

// ValidAvailability reports whether text names a weekday between Monday and
// Friday and one of the allowed hours.
func ValidAvailability(text string) bool {
	lower := strings.ToLower(text)
	if !weekdayRegex.MatchString(lower) {
		return false
	}
	for _, run := range digitRun.FindAllString(lower, -1) {
		if allowedHours[run] {
			return true
		}
	}
	return false
}

// NormalizeObservation maps the "nothing to add" answers to an empty string.
func NormalizeObservation(text string) string {
	text = strings.TrimSpace(text)
	switch strings.ToLower(strings.Trim(text, ".!")) {
	case "nenhuma", "nenhum", "none":
		return ""
	}
	return text
}
