package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks docqa-ai/internal/vectorstore VectorStore

import (
	"context"
	"math"
)

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
// Score is a similarity in (0, 1], higher is better.
type SearchResult struct {
	PointID string
	Score   float64
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Add appends points to the index.
	Add(ctx context.Context, points []Point) error

	// Search returns up to k nearest points ordered by descending score.
	// An empty index yields an empty result and no error.
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)

	// DeleteBySource removes every point whose "source" metadata equals source.
	DeleteBySource(ctx context.Context, source string) error

	// Count returns the number of indexed points.
	Count(ctx context.Context) (int, error)
}

// distanceToScore maps a squared L2 distance to a similarity in (0, 1],
// rounded to four decimals.
func distanceToScore(dist float64) float64 {
	if dist < 0 {
		dist = 0
	}
	return math.Round(1/(1+dist)*10000) / 10000
}
