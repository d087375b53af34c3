package rag

import (
	"sort"
	"strings"

	"docqa-ai/internal/query"
)

const (
	// DefaultEvidenceThreshold is the minimum score for a chunk to count as evidence.
	DefaultEvidenceThreshold = 0.05

	maxEvidence     = 3
	maxListEvidence = 8
	fallbackCount   = 3

	indexScoreCeiling      = 0.25
	irrelevantScoreCeiling = 0.2
)

// FilterEvidence drops weak, duplicate and boilerplate chunks and caps the
// result. Legal questions bypass filtering entirely. Content-shape checks
// only apply to low-scoring chunks.
func FilterEvidence(chunks []Chunk, threshold float64, kind query.Kind) []Chunk {
	if len(chunks) == 0 {
		return nil
	}

	sorted := sortedByScore(chunks)
	if kind.Has(query.Legal) {
		return sorted
	}

	limit := maxEvidence
	if kind.Has(query.List) {
		limit = maxListEvidence
	}

	type pageKey struct {
		source string
		page   string
	}
	seen := make(map[pageKey]bool)
	out := make([]Chunk, 0, limit)
	for _, c := range sorted {
		text := strings.TrimSpace(c.Text)
		switch {
		case c.Score < threshold:
			continue
		case text == "":
			continue
		case c.Score < indexScoreCeiling && IsIndexContent(text):
			continue
		case c.Score < irrelevantScoreCeiling && IsIrrelevantContent(text):
			continue
		}

		key := pageKey{source: c.Source, page: optString(c.Page)}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// SelectEvidence is FilterEvidence with a floor: when filtering removes every
// chunk of a non-empty input, the top chunks by raw score are used instead.
func SelectEvidence(chunks []Chunk, threshold float64, kind query.Kind) []Chunk {
	filtered := FilterEvidence(chunks, threshold, kind)
	if len(filtered) > 0 || len(chunks) == 0 {
		return filtered
	}
	sorted := sortedByScore(chunks)
	if len(sorted) > fallbackCount {
		sorted = sorted[:fallbackCount]
	}
	return sorted
}

func sortedByScore(chunks []Chunk) []Chunk {
	out := make([]Chunk, len(chunks))
	copy(out, chunks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
