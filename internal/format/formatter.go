// Package format renders generated answers as narrative paragraphs or bullet
// lists.
package format

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"docqa-ai/internal/contextutil"
)

// Empty is returned for blank answers.
const Empty = "No se encontró información suficiente"

// Options controls rendering.
type Options struct {
	// ForceBullets renders the answer as a list even without list markers.
	ForceBullets bool
	// Unified allows list layouts. When false and ForceBullets is false the
	// answer is always rendered as narrative.
	Unified bool
}

type layout string

const (
	layoutNarrative  layout = "narrative"
	layoutSimpleList layout = "simple_list"
	layoutMixed      layout = "mixed_content"
)

const bullet = "• "

var (
	answerLabelRe     = regexp.MustCompile(`(?i)^\s*(respuesta|la respuesta)\s*:\s*`)
	blankRunRe        = regexp.MustCompile(`[ \t]+`)
	blankLinesRe      = regexp.MustCompile(`\n\s*\n+`)
	manyBlankLinesRe  = regexp.MustCompile(`\n\s*\n\s*\n+`)
	colonPeriodRe     = regexp.MustCompile(`:\s*\.`)
	asteriskLineRe    = regexp.MustCompile(`(?m)^\s*\*{1,3}\s*[.,;:!?]?\s*$`)
	asteriskPunctRe   = regexp.MustCompile(`\*{1,3}([.,;:!?])`)
	gluedWordsRe      = regexp.MustCompile(`([a-záéíóúñ])([A-ZÁÉÍÓÚÑ][a-záéíóúñ]+)`)
	gluedSentenceRe   = regexp.MustCompile(`([.!?])([A-ZÁÉÍÓÚÑ])`)
	bulletMarkerRe    = regexp.MustCompile(`(?m)^\s*[-•·*]\s+`)
	bulletLineRe      = regexp.MustCompile(`^[-•·*]\s+`)
	anyBulletRe       = regexp.MustCompile(`(?m)^\s*[•\-*]\s+`)
	numberedLineRe    = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	numberedRunRe     = regexp.MustCompile(`\d+[.)]\s+`)
	numberedSplitRe   = regexp.MustCompile(`\s*\d+[.)]\s*`)
	listIntroducerRe  = regexp.MustCompile(`(?i)\b(?:incluye|incluyen|son|menciona|mencionan|enumera|enumeran|contiene|contienen|presenta|presentan)\s*:`)
	trailingDotsRe    = regexp.MustCompile(`\.+$`)
	leadingConjRe     = regexp.MustCompile(`^\s*y\s+`)
	trailingConjRe    = regexp.MustCompile(`\s+y\s*$`)
	leadingDashRe     = regexp.MustCompile(`^\s*-\s*`)
	paragraphSplitRe  = regexp.MustCompile(`\n\s*\n`)
	terminalPunctRe   = regexp.MustCompile(`[.!?]\s*$`)
	trailingConnector = regexp.MustCompile(`(?i)\s*\b(?:ademas|además|por último|finalmente|en conclusión|en resumen|para terminar)[.,;:]*$`)
)

var narrativeConnectors = []string{
	"que ", "lo que ", "sino ", "sin embargo ", "no obstante ", "funcionando ",
	"contrat", "así ", "de este modo ", "por lo tanto ", "por consiguiente ",
	"además ", "también ", "donde ", "cuando ", "mientras ", "aunque ",
}

var tailMarkers = []string{
	"En esencia", "En resumen", "En conclusión", "Finalmente", "Por último",
	"Puede ser", "Se presenta",
}

// Format cleans answer and lays it out as a list or as narrative paragraphs.
func Format(ctx context.Context, answer string, opts Options) string {
	if strings.TrimSpace(answer) == "" {
		return Empty
	}

	text := initialCleanup(answer)
	if !opts.Unified && !opts.ForceBullets {
		return narrative(text)
	}

	l := chooseLayout(text, opts.ForceBullets)
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "formatting answer", "layout", string(l), "length", len(text))

	var out string
	switch l {
	case layoutSimpleList:
		out = simpleList(text)
	case layoutMixed:
		out = mixedContent(text)
	default:
		out = narrative(text)
	}
	return finalCleanup(out)
}

func initialCleanup(text string) string {
	text = answerLabelRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	text = colonPeriodRe.ReplaceAllString(text, ":")
	text = asteriskLineRe.ReplaceAllString(text, "")
	text = gluedWordsRe.ReplaceAllString(text, "$1. $2")
	text = gluedSentenceRe.ReplaceAllString(text, "$1 $2")
	return strings.TrimSpace(text)
}

func chooseLayout(text string, forceList bool) layout {
	if forceList || hasListMarkers(text) {
		return layoutSimpleList
	}

	long := false
	for _, s := range splitSentences(text) {
		if utf8.RuneCountInString(s) > 80 {
			long = true
			break
		}
	}
	if long && strings.Count(text, ",") >= 4 {
		return layoutMixed
	}
	return layoutNarrative
}

func hasListMarkers(text string) bool {
	return listIntroducerRe.MatchString(text) ||
		bulletMarkerRe.MatchString(text) ||
		numberedLineRe.MatchString(text)
}

func simpleList(text string) string {
	intro, body := splitIntro(text)
	bullets, tail := splitBulletsAndTail(extractItems(body))

	var parts []string
	if intro != "" {
		if !strings.ContainsAny(intro[len(intro)-1:], ".!?:") {
			intro += ":"
		}
		parts = append(parts, intro)
	}
	for _, item := range bullets {
		parts = append(parts, bullet+item)
	}
	if len(tail) > 0 {
		parts = append(parts, narrative(strings.Join(tail, "\n")))
	}
	if len(parts) == 0 {
		return narrative(text)
	}
	return strings.Join(parts, "\n\n")
}

// splitIntro separates a "X incluye:" style introduction, or the lines before
// the first bullet or numbered line, from the list after it.
func splitIntro(text string) (string, string) {
	if loc := listIntroducerRe.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[1]]), strings.TrimSpace(text[loc[1]:])
	}
	for _, re := range []*regexp.Regexp{bulletMarkerRe, numberedLineRe} {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] > 0 {
			return strings.TrimSpace(text[:loc[0]]), strings.TrimSpace(text[loc[0]:])
		}
	}
	return "", text
}

func extractItems(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var items []string
	switch {
	case numberedRunRe.MatchString(content):
		items = numberedSplitRe.Split(content, -1)
	case bulletMarkerRe.MatchString(content):
		for _, line := range strings.Split(content, "\n") {
			line = strings.TrimSpace(line)
			if bulletLineRe.MatchString(line) {
				items = append(items, bulletLineRe.ReplaceAllString(line, ""))
			}
		}
	case strings.Contains(content, ",") || strings.Contains(content, " - "):
		sep := ","
		if !strings.Contains(content, ",") {
			sep = " - "
		}
		for _, item := range strings.Split(content, sep) {
			item = trailingConjRe.ReplaceAllString(item, "")
			item = leadingConjRe.ReplaceAllString(item, "")
			item = leadingDashRe.ReplaceAllString(item, "")
			items = append(items, item)
		}
	default:
		items = []string{content}
	}

	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if utf8.RuneCountInString(item) <= 2 {
			continue
		}
		item = strings.TrimSpace(trailingDotsRe.ReplaceAllString(item, ""))
		if item == "" {
			continue
		}
		cleaned = append(cleaned, capitalize(item))
	}
	return cleaned
}

// splitBulletsAndTail keeps short items as bullets. The first long item or
// closing remark starts a narrative tail that takes every item after it.
func splitBulletsAndTail(items []string) (bullets, tail []string) {
	inTail := false
	for _, item := range items {
		if inTail || len(strings.Fields(item)) >= 14 || hasAnyPrefix(item, tailMarkers) {
			inTail = true
			tail = append(tail, item)
			continue
		}
		bullets = append(bullets, item)
	}
	return bullets, tail
}

func mixedContent(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return text
	}

	intro := sentences[0]
	if !strings.HasSuffix(intro, ".") {
		intro += "."
	}

	var items []string
	for _, s := range sentences[1:] {
		words := len(strings.Fields(s))
		switch {
		case words < 5:
			if len(items) > 0 {
				items[len(items)-1] += " " + s
			} else {
				items = append(items, s)
			}
		case strings.Contains(s, ",") && words > 25:
			for _, part := range strings.Split(s, ",") {
				if len(strings.Fields(part)) > 5 {
					items = append(items, strings.TrimSpace(part))
				}
			}
		default:
			items = append(items, s)
		}
	}

	var lines []string
	for _, item := range items {
		if item = removeTrailingConnectors(item); item != "" {
			lines = append(lines, bullet+item)
		}
	}
	if len(lines) == 0 {
		return intro
	}
	return intro + "\n\n" + strings.Join(lines, "\n")
}

func narrative(text string) string {
	text = bulletMarkerRe.ReplaceAllString(text, "")

	var paragraphs []string
	for _, para := range paragraphSplitRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		var merged []string
		for _, line := range strings.Split(para, "\n") {
			for _, part := range splitSentences(line) {
				if len(merged) > 0 {
					prev := merged[len(merged)-1]
					if len(strings.Fields(part)) <= 4 ||
						hasAnyPrefix(strings.ToLower(part), narrativeConnectors) ||
						strings.HasSuffix(prev, ":") {
						merged[len(merged)-1] = strings.TrimRight(prev, " ") + " " + part
						continue
					}
				}
				merged = append(merged, part)
			}
		}

		for i, s := range merged {
			if !terminalPunctRe.MatchString(s) {
				merged[i] = s + "."
			}
		}
		if len(merged) > 0 {
			paragraphs = append(paragraphs, strings.Join(merged, " "))
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func finalCleanup(text string) string {
	text = manyBlankLinesRe.ReplaceAllString(text, "\n\n")
	text = blankRunRe.ReplaceAllString(text, " ")
	text = removeStrayAsterisks(text)

	if !anyBulletRe.MatchString(text) {
		text = joinSingleNewlines(text)
	}

	text = strings.TrimSpace(text)
	if text != "" && !terminalPunctRe.MatchString(text) {
		text += "."
	}
	return text
}

// removeStrayAsterisks drops markdown emphasis left over by the model.
func removeStrayAsterisks(text string) string {
	text = asteriskLineRe.ReplaceAllString(text, "")
	text = asteriskPunctRe.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "*", "")
	return strings.TrimSpace(blankRunRe.ReplaceAllString(text, " "))
}

// joinSingleNewlines turns lone newlines into spaces, keeping blank-line
// paragraph breaks.
func joinSingleNewlines(text string) string {
	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' {
			prevNL := i > 0 && text[i-1] == '\n'
			nextNL := i+1 < len(text) && text[i+1] == '\n'
			if !prevNL && !nextNL {
				sb.WriteByte(' ')
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func removeTrailingConnectors(text string) string {
	text = trailingConnector.ReplaceAllString(text, "")
	return strings.Trim(text, " .,:;")
}

// splitSentences splits after '.', '!' or '?' followed by whitespace and
// drops empty pieces.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if !unicode.IsSpace(r) || i == 0 {
			continue
		}
		prev, _ := utf8.DecodeLastRuneInString(text[:i])
		if prev != '.' && prev != '!' && prev != '?' {
			continue
		}
		if s := strings.TrimSpace(text[start:i]); s != "" {
			out = append(out, s)
		}
		start = i
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
