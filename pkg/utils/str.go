package utils

import (
	"regexp"
	"strings"
)

// FirstNonEmpty returns the first non-empty string, or "" when all are empty
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// SplitByMultipleDelimiters splits s on any of the delimiters, trimming
// whitespace and dropping empty pieces.
func SplitByMultipleDelimiters(s string, delimiters ...string) []string {
	parts := []string{s}
	if len(delimiters) > 0 {
		delimiterPattern := "[" + regexp.QuoteMeta(strings.Join(delimiters, "")) + "]"
		parts = regexp.MustCompile(delimiterPattern).Split(s, -1)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
