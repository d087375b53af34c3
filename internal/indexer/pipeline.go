package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/rag"
	"docqa-ai/internal/storage"
	"docqa-ai/internal/vectorstore"
)

// DefaultBatchSize is the number of chunks sent per embedding request.
const DefaultBatchSize = 64

// Embedder turns chunk texts into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Forgetter drops cached per-document state when a document is re-indexed.
type Forgetter interface {
	Forget(path string)
}

// Options tunes a Pipeline. Zero values select the defaults.
type Options struct {
	ChunkWords      int
	OverlapWords    int
	BatchSize       int
	EmbedRatePerSec float64 // <= 0 disables throttling
	EmbeddingModel  string
	PageTexts       PageTextFunc
	// Offsets is told to forget a document whenever it is re-indexed.
	Offsets Forgetter
}

// IndexResult describes what happened to one document.
type IndexResult struct {
	Path    string
	Source  string
	Skipped bool // content hash unchanged
	Chunks  []Chunk
}

// Pipeline orchestrates the indexing of documents into SQLite and the vector store.
type Pipeline struct {
	documentsDir string
	documents    storage.DocumentStore
	embedder     Embedder
	store        vectorstore.VectorStore
	extractor    *Extractor
	chunker      *TextChunker
	limiter      *rate.Limiter
	batchSize    int
	offsets      Forgetter
	version      string

	// mu serializes indexing so chunk_index stays contiguous.
	mu sync.Mutex
}

// NewPipeline creates a new indexing pipeline rooted at documentsDir.
func NewPipeline(
	documentsDir string,
	documents storage.DocumentStore,
	embedder Embedder,
	store vectorstore.VectorStore,
	opts Options,
) *Pipeline {
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = DefaultChunkWords
	}
	if opts.OverlapWords <= 0 {
		opts.OverlapWords = DefaultOverlapWords
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	limit := rate.Inf
	if opts.EmbedRatePerSec > 0 {
		limit = rate.Limit(opts.EmbedRatePerSec)
	}

	return &Pipeline{
		documentsDir: documentsDir,
		documents:    documents,
		embedder:     embedder,
		store:        store,
		extractor:    NewExtractor(opts.PageTexts),
		chunker:      NewTextChunker(opts.ChunkWords, opts.OverlapWords),
		limiter:      rate.NewLimiter(limit, 1),
		batchSize:    opts.BatchSize,
		offsets:      opts.Offsets,
		version:      indexVersion(opts.EmbeddingModel, opts.ChunkWords, opts.OverlapWords),
	}
}

// DocumentsDir returns the folder the pipeline indexes.
func (p *Pipeline) DocumentsDir() string {
	return p.documentsDir
}

// IndexFile indexes a single document. Files whose content hash matches the
// stored one are skipped.
func (p *Pipeline) IndexFile(ctx context.Context, path string) (*IndexResult, error) {
	return p.index(ctx, path, false)
}

// Reindex indexes a single document even when its content is unchanged.
func (p *Pipeline) Reindex(ctx context.Context, path string) (*IndexResult, error) {
	return p.index(ctx, path, true)
}

func (p *Pipeline) index(ctx context.Context, path string, force bool) (*IndexResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	path = filepath.Clean(path)
	result := &IndexResult{Path: path, Source: filepath.Base(path)}

	if !IsSupported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	hashHex := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := p.documents.GetByPath(ctx, path)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing document: %w", err)
	}

	if !force && existing != nil && existing.Hash == hashHex {
		logger.DebugContext(ctx, "skipping unchanged file", "path", path, "hash", hashHex)
		result.Skipped = true
		return result, nil
	}

	segments, err := p.extractor.Extract(path, content)
	if err != nil {
		return nil, err
	}
	result.Chunks = p.chunkSegments(segments)

	// Drop the previous version before adding the new one.
	if err := p.store.DeleteBySource(ctx, result.Source); err != nil {
		return nil, fmt.Errorf("failed to delete old chunks: %w: %w", ErrVectorStore, err)
	}
	if p.offsets != nil {
		p.offsets.Forget(path)
	}

	if len(result.Chunks) == 0 {
		logger.WarnContext(ctx, "no chunks generated", "path", path)
	} else if err := p.storeChunks(ctx, path, result.Source, result.Chunks); err != nil {
		return nil, err
	}

	record := &storage.DocumentRecord{
		Path:       path,
		Source:     result.Source,
		Hash:       hashHex,
		ChunkCount: len(result.Chunks),
	}
	if existing != nil {
		record.ID = existing.ID
	}
	if err := p.documents.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to upsert document: %w", err)
	}

	logger.InfoContext(ctx, "indexed document", "path", path, "chunks", len(result.Chunks))
	return result, nil
}

// chunkSegments splits every segment into chunks. Page-local indexes restart
// on every PDF page and run across the whole document otherwise. A segment
// without a section gets one detected from its leading lines.
func (p *Pipeline) chunkSegments(segments []segment) []Chunk {
	var chunks []Chunk
	docIndex := 0

	for _, seg := range segments {
		section := seg.section
		if section == "" {
			section = DetectSection(seg.text)
		}

		for i, text := range p.chunker.Chunk(seg.text) {
			pageIndex := docIndex
			if seg.page != nil {
				pageIndex = i
			}
			chunks = append(chunks, Chunk{
				Text:           text,
				Page:           seg.page,
				PageChunkIndex: pageIndex,
				Section:        section,
			})
			docIndex++
		}
	}
	return chunks
}

// storeChunks embeds chunks in throttled batches and adds them to the vector
// store. The global chunk_index continues from the current store size.
func (p *Pipeline) storeChunks(ctx context.Context, path, source string, chunks []Chunk) error {
	base, err := p.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count indexed chunks: %w: %w", ErrVectorStore, err)
	}

	points := make([]vectorstore.Point, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]

		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("embedding throttle: %w", err)
		}

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		embeddings, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings: %w: %w", ErrEmbedding, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(embeddings))
		}

		for i, chunk := range batch {
			points = append(points, vectorstore.Point{
				ID:   uuid.New().String(),
				Vec:  embeddings[i],
				Meta: chunkMeta(chunk, path, source, base+start+i),
			})
		}
	}

	if err := p.store.Add(ctx, points); err != nil {
		return fmt.Errorf("failed to add vectors: %w: %w", ErrVectorStore, err)
	}
	return nil
}

// chunkMeta builds the stored metadata for a chunk. Absent page and section
// are left out rather than stored as null.
func chunkMeta(chunk Chunk, path, source string, index int) map[string]any {
	meta := map[string]any{
		rag.MetaText:           chunk.Text,
		rag.MetaSource:         source,
		rag.MetaSourcePath:     path,
		rag.MetaChunkIndex:     index,
		rag.MetaPageChunkIndex: chunk.PageChunkIndex,
	}
	if chunk.Page != nil {
		meta[rag.MetaPage] = *chunk.Page
	}
	if chunk.Section != "" {
		meta[rag.MetaSection] = chunk.Section
	}
	return meta
}

// Remove deletes a document's chunks and registry entry.
func (p *Pipeline) Remove(ctx context.Context, path string) error {
	logger := contextutil.LoggerFromContext(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	path = filepath.Clean(path)
	if err := p.store.DeleteBySource(ctx, filepath.Base(path)); err != nil {
		return fmt.Errorf("failed to delete chunks: %w: %w", ErrVectorStore, err)
	}
	if err := p.documents.Delete(ctx, path); err != nil {
		return err
	}
	if p.offsets != nil {
		p.offsets.Forget(path)
	}

	logger.InfoContext(ctx, "removed document", "path", path)
	return nil
}

// IndexAll walks the documents folder and indexes every supported file.
// Errors for individual files are logged but don't stop the indexing process.
func (p *Pipeline) IndexAll(ctx context.Context) (*IndexStats, error) {
	logger := contextutil.LoggerFromContext(ctx)

	paths, err := p.scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}

	logger.InfoContext(ctx, "starting indexing", "total_files", len(paths))
	collector := newStatsCollector(p.version)

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return collector.result(), ctx.Err()
		default:
		}

		result, err := p.IndexFile(ctx, path)
		if err != nil {
			collector.fail()
			logger.ErrorContext(ctx, "failed to index file", "path", path, "error", err)
			continue
		}
		collector.add(result)
	}

	stats := collector.result()
	logger.InfoContext(ctx, "indexing completed",
		"total_files", len(paths),
		"processed", stats.DocsProcessed,
		"skipped", stats.DocsSkipped,
		"errors", stats.DocsFailed,
		"chunks", stats.ChunksEmbedded,
	)

	if stats.DocsFailed > 0 {
		return stats, fmt.Errorf("indexing completed with %d errors", stats.DocsFailed)
	}
	return stats, nil
}

// scan lists supported, non-hidden files directly in the documents folder in
// lexical order. Subfolders are not indexed: the file name is the source key.
func (p *Pipeline) scan() ([]string, error) {
	entries, err := os.ReadDir(p.documentsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.documentsDir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(p.documentsDir, entry.Name())
		if IsSupported(path) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}
