package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims input, collapses runs of whitespace to one space and
// caps the result at maxLen runes. Names with accents are never cut mid-rune.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 || utf8.RuneCountInString(cleaned) <= maxLen {
		return cleaned
	}
	runes := []rune(cleaned)
	return strings.TrimSpace(string(runes[:maxLen]))
}

// SanitizeOptional applies SanitizeString to an optional field. Blank input
// stays non-nil so services can tell "clear" from "leave unchanged".
func SanitizeOptional(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	cleaned := SanitizeString(*input, maxLen)
	return &cleaned
}
