package indexer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultChunkWords is the target chunk size in words.
	DefaultChunkWords = 150
	// DefaultOverlapWords is how many trailing words a chunk repeats from the previous one.
	DefaultOverlapWords = 30
)

var (
	// sentenceEndRe matches terminal punctuation followed by whitespace.
	sentenceEndRe = regexp.MustCompile(`[.!?]+\s+`)
	junkLineRe    = regexp.MustCompile(`^[\d\s\-_=.]+$`)
	spaceRe       = regexp.MustCompile(`\s+`)
	spaceBeforeRe = regexp.MustCompile(`\s+([.,;:!?])`)
	twoDigitsRe   = regexp.MustCompile(`\d{2,}`)

	titleMetadataPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)esc\.\s*sec\.`),
		regexp.MustCompile(`(?i)página\s*\d+`),
		regexp.MustCompile(`(?i)capítulo\s*\d+`),
		regexp.MustCompile(`\d{4}`),
		regexp.MustCompile(`(?i)autor:|fuente:|fecha:`),
	}

	textReplacer = strings.NewReplacer(
		"\r\n", "\n",
		"\r", "\n",
		"\u00a0", " ",
		"\u2019", "'",
		"\u201c", `"`,
		"\u201d", `"`,
		"\u2013", "-",
		"\u2014", "-",
	)
)

// TextChunker splits plain text into overlapping word windows that respect
// sentence boundaries.
type TextChunker struct {
	size    int
	overlap int
}

// NewTextChunker creates a chunker. Non-positive size falls back to
// DefaultChunkWords; overlap is clamped to [0, size).
func NewTextChunker(size, overlap int) *TextChunker {
	if size <= 0 {
		size = DefaultChunkWords
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &TextChunker{size: size, overlap: overlap}
}

// Chunk cleans text and splits it into chunks of about size words. Whole
// sentences are kept together; a new chunk starts with the last overlap
// words of the previous one. A single sentence longer than size becomes its
// own chunk.
func (c *TextChunker) Chunk(text string) []string {
	text = cleanExtractedText(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current []string

	for _, sentence := range splitSentences(text) {
		words := strings.Fields(sentence)
		if len(words) == 0 {
			continue
		}

		if len(current)+len(words) > c.size && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			if c.overlap > 0 && len(current) > c.overlap {
				tail := current[len(current)-c.overlap:]
				current = append(append([]string{}, tail...), words...)
			} else {
				current = append([]string{}, words...)
			}
			continue
		}
		current = append(current, words...)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// splitSentences splits after runs of terminal punctuation, keeping the punctuation.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[last:loc[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// cleanExtractedText normalizes typographic characters, drops lines made of
// digits and separators only, and collapses whitespace into single spaces.
func cleanExtractedText(text string) string {
	if text == "" {
		return ""
	}
	text = textReplacer.Replace(text)

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) <= 2 || junkLineRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}

	text = strings.Join(kept, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	text = spaceBeforeRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// DetectSection returns the first of the leading five lines that looks like a
// title: 5-80 characters, mostly letters, no trailing period or comma, no
// multi-digit numbers and no page/chapter/author markers. It returns "" when
// no line qualifies.
func DetectSection(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if looksLikeTitle(line) {
			return line
		}
	}
	return ""
}

func looksLikeTitle(line string) bool {
	n := utf8.RuneCountInString(line)
	if n < 5 || n > 80 {
		return false
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") {
		return false
	}
	if twoDigitsRe.MatchString(line) {
		return false
	}

	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if float64(letters) <= float64(n)*0.5 {
		return false
	}

	for _, re := range titleMetadataPatterns {
		if re.MatchString(line) {
			return false
		}
	}
	return true
}
