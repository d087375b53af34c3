package rag

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/vectorstore"
)

const (
	// DefaultTopK is used when a request does not set TopK.
	DefaultTopK = 5
	// MaxTopK bounds TopK.
	MaxTopK = 20
	// overFetch multiplies TopK for the index query so post-filtering keeps enough candidates.
	overFetch = 3
)

// RetrieveRequest describes one retrieval.
type RetrieveRequest struct {
	Query     string
	TopK      int
	Filters   map[string]any
	Namespace string
}

// Retriever embeds a question, queries the vector index and ranks the hits.
type Retriever struct {
	embedder    Embedder
	store       vectorstore.VectorStore
	defaultTopK int
}

// NewRetriever creates a Retriever. defaultTopK <= 0 selects DefaultTopK.
func NewRetriever(embedder Embedder, store vectorstore.VectorStore, defaultTopK int) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &Retriever{
		embedder:    embedder,
		store:       store,
		defaultTopK: defaultTopK,
	}
}

// stageResult is the output of one retrieval stage.
type stageResult struct {
	chunks  []Chunk
	relaxed bool
}

func (s stageResult) empty() bool {
	return len(s.chunks) == 0
}

// Retrieve returns up to TopK chunks ordered by descending score. Filters and
// namespace are applied first; if they eliminate every candidate the index is
// queried again without them.
func (r *Retriever) Retrieve(ctx context.Context, req RetrieveRequest) ([]Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	k := r.topK(req.TopK)

	embeddings, err := r.embedder.EmbedTexts(ctx, []string{req.Query})
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return nil, fmt.Errorf("failed to embed query: %w: %w", ErrEmbedding, err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("failed to embed query: %w: no embedding returned", ErrEmbedding)
	}
	vec := embeddings[0]

	candidates, err := r.search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	stage := strictStage(candidates, req.Filters, req.Namespace)
	if stage.empty() && len(candidates) > 0 {
		logger.InfoContext(ctx, "filters matched nothing, relaxing",
			"filters", req.Filters,
			"namespace", req.Namespace,
			"candidates", len(candidates),
		)
		stage, err = r.relaxedStage(ctx, vec, k)
		if err != nil {
			return nil, err
		}
	}

	chunks := rankChunks(dedupChunks(stage.chunks))
	if len(chunks) > k {
		chunks = chunks[:k]
	}

	logger.InfoContext(ctx, "retrieval completed",
		"candidates", len(candidates),
		"returned", len(chunks),
		"k", k,
		"relaxed", stage.relaxed,
	)
	if len(chunks) > 0 {
		top := make([]float64, 0, 3)
		for i := 0; i < len(chunks) && i < 3; i++ {
			top = append(top, chunks[i].Score)
		}
		logger.DebugContext(ctx, "top retrieval scores", "scores", top)
	}
	return chunks, nil
}

func (r *Retriever) topK(k int) int {
	if k <= 0 {
		k = r.defaultTopK
	}
	if k > MaxTopK {
		k = MaxTopK
	}
	return k
}

func (r *Retriever) search(ctx context.Context, vec []float32, k int) ([]Chunk, error) {
	results, err := r.store.Search(ctx, vec, overFetch*k)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to search vector store", "error", err)
		return nil, fmt.Errorf("failed to search vector store: %w: %w", ErrVectorStore, err)
	}
	chunks := make([]Chunk, 0, len(results))
	for _, res := range results {
		chunks = append(chunks, chunkFromResult(res))
	}
	return chunks, nil
}

// strictStage applies metadata filters and then the namespace constraint.
// The namespace only applies when some filter-matched chunk carries one and
// is compared case-insensitively.
func strictStage(candidates []Chunk, filters map[string]any, namespace string) stageResult {
	matched := make([]Chunk, 0, len(candidates))
	for _, c := range candidates {
		if matchesFilters(c, filters) {
			matched = append(matched, c)
		}
	}

	namespace = strings.TrimSpace(namespace)
	if namespace == "" || !anyHasNamespace(matched) {
		return stageResult{chunks: matched}
	}

	out := make([]Chunk, 0, len(matched))
	for _, c := range matched {
		if c.HasNamespace && strings.EqualFold(strings.TrimSpace(c.Namespace), namespace) {
			out = append(out, c)
		}
	}
	return stageResult{chunks: out}
}

// relaxedStage re-queries the index with no constraints.
func (r *Retriever) relaxedStage(ctx context.Context, vec []float32, k int) (stageResult, error) {
	chunks, err := r.search(ctx, vec, k)
	if err != nil {
		return stageResult{}, err
	}
	return stageResult{chunks: chunks, relaxed: true}, nil
}

func anyHasNamespace(chunks []Chunk) bool {
	for _, c := range chunks {
		if c.HasNamespace {
			return true
		}
	}
	return false
}

func matchesFilters(c Chunk, filters map[string]any) bool {
	for field, want := range filters {
		values := filterValues(want)
		if len(values) == 0 {
			continue
		}
		matched := false
		for _, v := range values {
			if matchField(c, field, v) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// filterValues flattens a filter value into its non-blank lowercase strings.
func filterValues(v any) []string {
	var raw []string
	switch t := v.(type) {
	case nil:
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			raw = append(raw, stringify(item))
		}
	default:
		raw = []string{stringify(t)}
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func matchField(c Chunk, field, want string) bool {
	value := strings.ToLower(c.field(field))
	switch field {
	case MetaSource, MetaSourcePath:
		return strings.Contains(value, want) || strings.Contains(baseName(value), want)
	case MetaSection:
		return strings.Contains(value, want)
	default:
		return value == want
	}
}

// baseName returns the file name of p without its extension, accepting both
// slash and backslash separators.
func baseName(p string) string {
	p = path.Base(strings.ReplaceAll(p, `\`, "/"))
	return strings.TrimSuffix(p, path.Ext(p))
}

type dedupKey struct {
	source            string
	page, chunk       int
	hasPage, hasChunk bool
}

func keyOf(c Chunk) dedupKey {
	k := dedupKey{source: c.Source}
	if c.Page != nil {
		k.page, k.hasPage = *c.Page, true
	}
	if c.ChunkIndex != nil {
		k.chunk, k.hasChunk = *c.ChunkIndex, true
	}
	return k
}

// dedupChunks keeps one chunk per (source, page, chunk_index), the one with
// the highest score. First-seen order is preserved.
func dedupChunks(chunks []Chunk) []Chunk {
	index := make(map[dedupKey]int, len(chunks))
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		key := keyOf(c)
		if i, ok := index[key]; ok {
			if c.Score > out[i].Score {
				out[i] = c
			}
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

// rankChunks sorts by score descending, then source, page and chunk index
// ascending. Missing page or chunk index sorts as 0.
func rankChunks(chunks []Chunk) []Chunk {
	sort.SliceStable(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if pa, pb := valueOrZero(a.Page), valueOrZero(b.Page); pa != pb {
			return pa < pb
		}
		return valueOrZero(a.ChunkIndex) < valueOrZero(b.ChunkIndex)
	})
	return chunks
}
