package sanitize

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	StrictPolicy = bluemonday.StrictPolicy()

	// UGCPolicy keeps basic formatting (paragraphs, emphasis, links, lists).
	UGCPolicy = bluemonday.UGCPolicy()
)

const maxNameRunes = 120

// Text strips all HTML tags. Use for event titles and locations.
func Text(input string) string {
	return StrictPolicy.Sanitize(input)
}

// HTML keeps safe formatting tags. Use for event descriptions.
func HTML(input string) string {
	return UGCPolicy.Sanitize(input)
}

// Name cleans a display name for attribution: tags stripped, whitespace
// collapsed, length capped.
func Name(input string) string {
	cleaned := strings.Join(strings.Fields(Text(input)), " ")
	if utf8.RuneCountInString(cleaned) <= maxNameRunes {
		return cleaned
	}
	runes := []rune(cleaned)
	return strings.TrimSpace(string(runes[:maxNameRunes]))
}
