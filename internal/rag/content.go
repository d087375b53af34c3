package rag

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const upperClass = `A-ZÁÉÍÓÚÑ`

var (
	indexPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)\.{3,}\s*\d+\s*$`),
		regexp.MustCompile(`(?m)^\d+\s+[` + upperClass + `\s]+\s*\.{3,}\s*\d+`),
		regexp.MustCompile(`(?m)^\d+\s+[` + upperClass + `\s]+\s*\.{2,}`),
		regexp.MustCompile(`(?m)^\d+\.\s*[` + upperClass + `\s]+\s*\.{2,}`),
		regexp.MustCompile(`(?m)^\d+\s+[` + upperClass + `\s]+$`),
		regexp.MustCompile(`\d+\s+[` + upperClass + `\s]+\s*\.{2,}\s*\d+`),
		regexp.MustCompile(`[` + upperClass + `\s]+\s*\.{3,}\s*\d+`),
	}

	indexLinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d+\s+[` + upperClass + `\s]+`),
		regexp.MustCompile(`^\d+\.\s+[` + upperClass + `\s]+`),
		regexp.MustCompile(`\.{3,}\s*\d+\s*$`),
		regexp.MustCompile(`\d+\s+[` + upperClass + `\s]+\s*\.{2,}\s*\d+`),
	}

	irrelevantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[` + upperClass + `\s]+$`),
		regexp.MustCompile(`^\d+\s*$`),
		regexp.MustCompile(`^[^\p{L}\p{N}_\s]*$`),
		regexp.MustCompile(`(?i)^(ISSN|ISBN|DOI|URL|http)`),
		regexp.MustCompile(`(?i)^(Editorial|Edita|Publicado|Año|Número|Volumen)`),
		regexp.MustCompile(`(?i)^(Página|Page)\s*\d+`),
		regexp.MustCompile(`^[` + upperClass + `\s]{3,}\s*\.{3,}`),
	}
)

// IsIndexContent reports whether text looks like a table of contents or an
// index page: dotted leaders followed by page numbers, numbered all-caps
// headings, or text with too little alphabetic content.
func IsIndexContent(text string) bool {
	text = strings.TrimSpace(text)

	for _, re := range indexPatterns {
		if re.MatchString(text) {
			return true
		}
	}

	lines := strings.Split(text, "\n")
	if len(lines) >= 2 {
		indexLike := 0
		for _, line := range lines {
			if isIndexLine(strings.TrimSpace(line)) {
				indexLike++
			}
		}
		if float64(indexLike)/float64(len(lines)) > 0.5 {
			return true
		}
	}

	matches := 0
	for _, re := range indexPatterns {
		matches += len(re.FindAllStringIndex(text, -1))
	}
	if matches >= 2 {
		return true
	}

	n := utf8.RuneCountInString(text)
	if n >= 30 && float64(countRunes(text, isSpanishLetter))/float64(n) < 0.35 {
		return true
	}
	return false
}

func isIndexLine(line string) bool {
	for _, re := range indexLinePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// IsIrrelevantContent reports whether text is boilerplate: a bare heading,
// page numbers, publication metadata, very short text or mostly symbols.
func IsIrrelevantContent(text string) bool {
	text = strings.TrimSpace(text)

	for _, re := range irrelevantPatterns {
		if re.MatchString(text) {
			return true
		}
	}

	n := utf8.RuneCountInString(text)
	if n < 20 {
		return true
	}

	symbols := countRunes(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_' && !unicode.IsSpace(r)
	})
	return float64(symbols)/float64(n) > 0.4
}

func isSpanishLetter(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	}
	return strings.ContainsRune("ÁÉÍÓÚáéíóúñÑ", r)
}

func countRunes(s string, pred func(rune) bool) int {
	n := 0
	for _, r := range s {
		if pred(r) {
			n++
		}
	}
	return n
}
