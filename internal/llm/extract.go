package llm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	fencedJSON = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSON   = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSONBlock returns the JSON object embedded in text. A fenced block
// wins over a bare span; "{}" is returned when nothing is found.
func ExtractJSONBlock(text string) string {
	if text == "" {
		return "{}"
	}
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bareJSON.FindString(text); m != "" {
		return m
	}
	return "{}"
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// cleanList keeps non-empty strings, trimmed and truncated, up to maxItems.
// Non-string entries are dropped.
func cleanList(raw []any, maxItems, maxLen int) []string {
	out := make([]string, 0, min(len(raw), maxItems))
	for _, v := range raw {
		s, isString := v.(string)
		if !isString {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, truncate(s, maxLen))
		if len(out) == maxItems {
			break
		}
	}
	return out
}
