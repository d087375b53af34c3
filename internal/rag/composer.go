package rag

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/query"
)

// InsufficientInformation is the answer given when no evidence is available.
const InsufficientInformation = "No se encontró información suficiente"

const (
	maxCitedSources    = 5
	minCitedSources    = 3
	minCitationJaccard = 0.02
)

type strategy int

const (
	strategyNoEvidence strategy = iota
	strategyLegalDocuments
	strategyWhichDocument
	strategyGenerated
)

func (s strategy) String() string {
	switch s {
	case strategyNoEvidence:
		return "no_evidence"
	case strategyLegalDocuments:
		return "legal_documents"
	case strategyWhichDocument:
		return "which_document"
	default:
		return "generated"
	}
}

var (
	answerPreambleRe = regexp.MustCompile(`(?i)^(respuesta.*?:|la respuesta.*?:|respuesta con citas.*?:)\s*`)
	citationTokenRe  = regexp.MustCompile(`[a-záéíóúñ]{3,}`)

	citationStopwords = map[string]bool{
		"los": true, "las": true, "una": true, "uno": true, "unos": true, "unas": true,
		"del": true, "con": true, "por": true, "para": true, "como": true, "que": true,
		"segun": true, "entre": true, "sobre": true, "este": true, "esta": true,
		"estos": true, "estas": true, "de": true, "en": true, "al": true, "el": true,
		"la": true, "y": true, "o": true,
	}
)

const promptTemplate = `
Responde a la siguiente pregunta basándote ÚNICAMENTE en el contexto proporcionado.

Pregunta:
%s

Contexto disponible:
%s

Instrucciones CRÍTICAS:
- DEBES usar TODA la información disponible en el contexto, incluso si parece parcial.
- Si el contexto menciona nombres, fechas, lugares o cualquier detalle relacionado con la pregunta, ÚSALO.
- Busca conexiones directas e indirectas entre la pregunta y el contexto.
- Responde con la información que SÍ tienes, no con lo que falta.
- NUNCA respondas "No se encontró información suficiente" si hay CUALQUIER información relacionada en el contexto.
- Si solo tienes información parcial, preséntala claramente indicando que es lo que se encontró.

Respuesta:`

// Composer assembles answers from evidence chunks.
type Composer struct {
	generator  Generator
	classifier *query.Classifier
	normalizer *SourceNormalizer
	threshold  float64
}

// NewComposer creates a Composer. threshold is the evidence score floor.
func NewComposer(generator Generator, classifier *query.Classifier, normalizer *SourceNormalizer, threshold float64) *Composer {
	return &Composer{
		generator:  generator,
		classifier: classifier,
		normalizer: normalizer,
		threshold:  threshold,
	}
}

// Compose selects evidence from chunks and answers q from it. Questions about
// which document holds something are answered from chunk sources; everything
// else goes through the Generator.
func (c *Composer) Compose(ctx context.Context, q string, chunks []Chunk) (Answer, error) {
	answer, _, err := c.compose(ctx, q, chunks)
	return answer, err
}

func (c *Composer) compose(ctx context.Context, q string, chunks []Chunk) (Answer, strategy, error) {
	logger := contextutil.LoggerFromContext(ctx)

	kind := c.classifier.Classify(q)
	evidence := SelectEvidence(chunks, c.threshold, kind)
	s := chooseStrategy(kind, evidence)

	logger.InfoContext(ctx, "composing answer",
		"kind", kind.String(),
		"strategy", s.String(),
		"chunks", len(chunks),
		"evidence", len(evidence),
	)

	var (
		answer Answer
		err    error
	)
	switch s {
	case strategyNoEvidence:
		answer = Answer{
			Answer:     InsufficientInformation,
			Sources:    []Citation{},
			Confidence: ConfidenceLow,
		}
	case strategyLegalDocuments:
		answer = c.legalDocuments(ctx, evidence)
	case strategyWhichDocument:
		answer = c.whichDocument(ctx, evidence)
	default:
		answer, err = c.generated(ctx, q, evidence)
		if err != nil {
			return Answer{}, s, err
		}
	}

	answer.QueryID = uuid.New().String()
	return answer, s, nil
}

func chooseStrategy(kind query.Kind, evidence []Chunk) strategy {
	switch {
	case len(evidence) == 0:
		return strategyNoEvidence
	case kind.Has(query.Legal | query.WhichDocument):
		return strategyLegalDocuments
	case kind.Has(query.WhichDocument) && hasNamedSource(evidence):
		return strategyWhichDocument
	default:
		return strategyGenerated
	}
}

func hasNamedSource(chunks []Chunk) bool {
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Source) != "" {
			return true
		}
	}
	return false
}

// legalDocuments lists every distinct source in first-seen order.
func (c *Composer) legalDocuments(ctx context.Context, evidence []Chunk) Answer {
	var docs []string
	seen := make(map[string]bool)
	for _, ch := range evidence {
		src := ch.Source
		if src == "" {
			src = UnknownSource
		}
		if !seen[src] {
			seen[src] = true
			docs = append(docs, src)
		}
	}

	confidence := ConfidenceHigh
	if meanScore(evidence) < 0.4 {
		confidence = ConfidenceMedium
	}

	return Answer{
		Answer:     "Se encontró que los siguientes documentos mencionan información relevante: " + strings.Join(docs, ", ") + ".",
		Sources:    c.normalizer.NormalizeAll(ctx, evidence),
		Confidence: confidence,
	}
}

// whichDocument names the single source with the highest summed score.
func (c *Composer) whichDocument(ctx context.Context, evidence []Chunk) Answer {
	type docScore struct {
		source string
		total  float64
	}
	var ranked []docScore
	index := make(map[string]int)
	for _, ch := range evidence {
		src := strings.TrimSpace(ch.Source)
		if src == "" {
			continue
		}
		i, ok := index[src]
		if !ok {
			i = len(ranked)
			index[src] = i
			ranked = append(ranked, docScore{source: src})
		}
		ranked[i].total += ch.Score
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].total > ranked[j].total
	})
	top := ranked[0].source

	var cited []Chunk
	for _, ch := range evidence {
		if strings.TrimSpace(ch.Source) == top {
			cited = append(cited, ch)
		}
	}

	return Answer{
		Answer:     fmt.Sprintf("El documento es: %s.", top),
		Sources:    c.normalizer.NormalizeAll(ctx, cited),
		Confidence: ConfidenceFromMean(meanScore(evidence)),
	}
}

func (c *Composer) generated(ctx context.Context, q string, evidence []Chunk) (Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)

	prompt := BuildPrompt(q, evidence)
	logger.DebugContext(ctx, "sending prompt to generator", "prompt_length", len(prompt), "evidence", len(evidence))

	raw, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate answer", "error", err)
		return Answer{}, fmt.Errorf("failed to generate answer: %w: %w", ErrGeneration, err)
	}
	text := StripAnswerPreamble(raw)
	logger.InfoContext(ctx, "received generated answer", "answer_length", len(text))

	return Answer{
		Answer:     text,
		Sources:    c.normalizer.NormalizeAll(ctx, selectCitedChunks(text, evidence)),
		Confidence: ConfidenceFromMean(meanScore(evidence)),
	}, nil
}

// BuildPrompt renders the grounded-answer prompt for q over evidence.
func BuildPrompt(q string, evidence []Chunk) string {
	texts := make([]string, 0, len(evidence))
	for _, ch := range evidence {
		texts = append(texts, ch.Text)
	}
	return fmt.Sprintf(promptTemplate, q, strings.Join(texts, " "))
}

// StripAnswerPreamble removes a leading "Respuesta:" style label echoed by the model.
func StripAnswerPreamble(answer string) string {
	answer = strings.TrimSpace(answer)
	answer = answerPreambleRe.ReplaceAllString(answer, "")
	return strings.TrimSpace(answer)
}

// selectCitedChunks ranks evidence by token overlap with the answer and keeps
// up to maxCitedSources of them. The first minCitedSources are always kept.
func selectCitedChunks(answer string, evidence []Chunk) []Chunk {
	answerTokens := citationTokens(answer)

	type scored struct {
		jaccard float64
		chunk   Chunk
	}
	candidates := make([]scored, 0, len(evidence))
	for _, ch := range evidence {
		candidates = append(candidates, scored{
			jaccard: jaccard(answerTokens, citationTokens(ch.Text)),
			chunk:   ch,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].jaccard != candidates[j].jaccard {
			return candidates[i].jaccard > candidates[j].jaccard
		}
		return candidates[i].chunk.Score > candidates[j].chunk.Score
	})
	if len(candidates) > maxCitedSources {
		candidates = candidates[:maxCitedSources]
	}

	selected := make([]Chunk, 0, len(candidates))
	for _, cand := range candidates {
		if cand.jaccard >= minCitationJaccard || len(selected) < minCitedSources {
			selected = append(selected, cand.chunk)
		}
	}
	return selected
}

func citationTokens(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range citationTokenRe.FindAllString(strings.ToLower(s), -1) {
		if !citationStopwords[w] {
			tokens[w] = true
		}
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func meanScore(chunks []Chunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, ch := range chunks {
		sum += ch.Score
	}
	return sum / float64(len(chunks))
}

// ConfidenceFromMean maps a mean relevance score to a confidence level.
func ConfidenceFromMean(mean float64) Confidence {
	switch {
	case mean >= 0.7:
		return ConfidenceHigh
	case mean >= 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// AnswerConfidence scores a finished answer from the mean score of the
// retrieved context and the answer's length in words.
func AnswerConfidence(retrieved []Chunk, answer string) Confidence {
	if len(retrieved) == 0 {
		return ConfidenceLow
	}
	mean := meanScore(retrieved)
	words := len(strings.Fields(answer))
	switch {
	case mean >= 0.7 && words >= 20:
		return ConfidenceHigh
	case mean >= 0.4 && words >= 10:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
