package rag

import (
	"context"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// NoSnippet is the citation text used when nothing usable remains of a chunk.
	NoSnippet = "Sin fragmento disponible"
	// UnknownSource names citations whose chunk has no source.
	UnknownSource = "desconocido"

	snippetMaxLen     = 200
	snippetBreakSlack = 10
)

const letterClass = `a-zA-ZáéíóúÁÉÍÓÚñÑ`

var (
	controlRe          = regexp.MustCompile(`[\x{00}-\x{1F}\x{7F}-\x{9F}]`)
	spaceRunRe         = regexp.MustCompile(`[\s\p{Z}]+`)
	spaceBeforePunctRe = regexp.MustCompile(`\s+([.,;:!?])`)
	punctGlueRe        = regexp.MustCompile(`([.,;:!?])([^\s\d.,;:!?])`)
	digitLetterRe      = regexp.MustCompile(`(\d)([` + letterClass + `])`)
	letterDigitRe      = regexp.MustCompile(`([` + letterClass + `])(\d)`)

	tocLeaderNumberRe = regexp.MustCompile(`\d+\s+([` + upperClass + `\s]+)\s*\.{2,}\s*\d+`)
	tocLeaderRe       = regexp.MustCompile(`\d+\s+([` + upperClass + `\s]+)\s*\.{2,}`)
	tocLineNumberRe   = regexp.MustCompile(`(?m)^\d+\s+([` + upperClass + `\s]+)`)
	numericLineRe     = regexp.MustCompile(`^[\d\s.\-]+$`)

	quoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`,
		"‘", "'", "’", "'",
		"–", "-", "—", "-",
	)
)

// SourceNormalizer turns chunks into user-facing citations.
type SourceNormalizer struct {
	offsets *PageOffsetResolver
}

// NewSourceNormalizer creates a SourceNormalizer. A nil resolver disables page correction.
func NewSourceNormalizer(offsets *PageOffsetResolver) *SourceNormalizer {
	return &SourceNormalizer{offsets: offsets}
}

// Normalize builds the citation for c: the PDF page number is shifted to the
// printed pagination and the text is reduced to a clean snippet.
func (n *SourceNormalizer) Normalize(ctx context.Context, c Chunk) Citation {
	source := c.Source
	if source == "" {
		source = UnknownSource
	}
	sourcePath := c.SourcePath
	if sourcePath == "" {
		sourcePath = source
	}

	page := c.Page
	if page != nil && n.offsets != nil && strings.HasSuffix(strings.ToLower(sourcePath), ".pdf") {
		displayed := *page + n.offsets.Offset(ctx, sourcePath)
		if displayed < 1 {
			displayed = 1
		}
		page = intPtr(displayed)
	}

	return Citation{
		Text:           Snippet(c.Text),
		Source:         source,
		Page:           page,
		Section:        c.Section,
		ChunkIndex:     c.PageChunkIndex,
		RelevanceScore: math.Round(c.Score*100) / 100,
	}
}

// NormalizeAll maps Normalize over chunks.
func (n *SourceNormalizer) NormalizeAll(ctx context.Context, chunks []Chunk) []Citation {
	out := make([]Citation, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, n.Normalize(ctx, c))
	}
	return out
}

// Snippet cleans and shortens chunk text for display.
func Snippet(text string) string {
	s := cleanSnippet(strings.TrimSpace(text))
	s = truncateSnippet(s)
	s = strings.Join(strings.Fields(s), " ")
	if s != "" {
		r, size := utf8.DecodeRuneInString(s)
		s = string(unicode.ToUpper(r)) + s[size:]
		if !strings.ContainsAny(s[len(s)-1:], ".!?") {
			s += "."
		}
	}
	s = cleanIndexContent(s)
	if s == "" {
		return NoSnippet
	}
	return s
}

func cleanSnippet(s string) string {
	if s == "" {
		return ""
	}
	s = controlRe.ReplaceAllString(s, " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = spaceBeforePunctRe.ReplaceAllString(s, "$1")
	s = punctGlueRe.ReplaceAllString(s, "$1 $2")
	s = quoteReplacer.Replace(s)
	s = digitLetterRe.ReplaceAllString(s, "$1 $2")
	s = letterDigitRe.ReplaceAllString(s, "$1 $2")
	return strings.TrimSpace(s)
}

// truncateSnippet shortens s to about snippetMaxLen runes. A sentence break
// is preferred, then a clause break, then any space, as long as the cut keeps
// more than half of the limit. Otherwise it falls back to the last space
// before the limit, and only text with no space at all is cut mid-word.
func truncateSnippet(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetMaxLen {
		return s
	}

	window := runes
	if len(window) > snippetMaxLen+snippetBreakSlack {
		window = window[:snippetMaxLen+snippetBreakSlack]
	}
	ws := string(window)

	for _, sep := range [][]string{{". "}, {", ", "; "}, {" "}} {
		cut := -1
		for _, sp := range sep {
			if i := strings.LastIndex(ws, sp); i > cut {
				cut = i
			}
		}
		if cut < 0 {
			continue
		}
		if pos := utf8.RuneCountInString(ws[:cut]); pos > snippetMaxLen/2 {
			return strings.TrimSpace(string(runes[:pos])) + "..."
		}
	}

	head := string(runes[:snippetMaxLen])
	if i := strings.LastIndex(head, " "); i > 0 {
		return strings.TrimSpace(head[:i]) + "..."
	}
	return head + "..."
}

// cleanIndexContent reduces table-of-contents entries to their heading text
// and keeps only lines with at least two words.
func cleanIndexContent(s string) string {
	s = tocLeaderNumberRe.ReplaceAllString(s, "$1")
	s = tocLeaderRe.ReplaceAllString(s, "$1")
	s = tocLineNumberRe.ReplaceAllString(s, "$1")

	var kept []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(strings.Fields(line)) >= 2 && !numericLineRe.MatchString(line) {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}
