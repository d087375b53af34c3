// Package query normalizes and classifies user questions.
package query

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	disallowedRunes = regexp.MustCompile(`[^a-záéíóúüñ0-9\s?.\-]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a raw question before embedding: NFKC, lowercase,
// punctuation other than ? . - replaced by spaces, whitespace collapsed.
// Empty input yields an empty string.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := norm.NFKC.String(raw)
	s = strings.ToLower(s)
	s = disallowedRunes.ReplaceAllString(s, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
