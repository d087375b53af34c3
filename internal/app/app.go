package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"docqa-ai/internal/config"
	"docqa-ai/internal/indexer"
	"docqa-ai/internal/llm"
	"docqa-ai/internal/query"
	"docqa-ai/internal/rag"
	"docqa-ai/internal/service"
	"docqa-ai/internal/storage"
	"docqa-ai/internal/vectorstore"
)

// App holds the assembled components shared by the API server, the CLI and
// the MCP server.
type App struct {
	Config          *config.Config
	DB              *sql.DB
	Store           vectorstore.VectorStore
	Embedder        *llm.EmbeddingsClient
	Pipeline        *indexer.Pipeline
	Engine          rag.Engine
	AskService      service.AskService
	DocumentService service.DocumentService

	closers []func() error
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// New opens the database and the vector index and wires the question
// answering and indexing components. It makes no network calls.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if err := storage.Migrate(db); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.InfoContext(ctx, "Database initialized", "path", cfg.DBPath)

	store, err := openVectorStore(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Store = store
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	keywords := query.DefaultKeywords()
	if cfg.KeywordsFile != "" {
		keywords, err = query.LoadKeywords(cfg.KeywordsFile)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to load keywords: %w", err)
		}
	}
	classifier := query.NewClassifier(keywords)

	documents := storage.NewDocumentRepo(db)
	metrics := storage.NewMetricRepo(db)

	a.Embedder = llm.NewEmbeddingsClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)
	llmClient := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.LLMModelName)

	offsets := rag.NewPageOffsetResolver(nil)
	retriever := rag.NewRetriever(a.Embedder, store, cfg.DefaultTopK)
	composer := rag.NewComposer(llmClient, classifier, rag.NewSourceNormalizer(offsets), cfg.EvidenceThreshold)
	a.Engine = rag.NewEngine(retriever, composer, classifier)

	a.Pipeline = indexer.NewPipeline(cfg.DocumentsDir, documents, a.Embedder, store, indexer.Options{
		EmbedRatePerSec: cfg.EmbedRatePerSec,
		EmbeddingModel:  cfg.EmbeddingModelName,
		Offsets:         offsets,
	})

	a.AskService = service.NewAskService(a.Engine, metrics, service.DefaultTokenDelay)
	a.DocumentService = service.NewDocumentService(cfg.DocumentsDir, a.Pipeline, documents)

	slog.InfoContext(ctx, "Components initialized",
		"vector_backend", cfg.VectorBackend,
		"llm_model", cfg.LLMModelName,
		"embedding_model", cfg.EmbeddingModelName,
	)
	return a, nil
}

func openVectorStore(ctx context.Context, cfg *config.Config) (vectorstore.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		if err := store.EnsureCollection(ctx, cfg.VectorSize); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
		}
		slog.InfoContext(ctx, "Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.VectorSize)
		return store, nil
	default:
		store, err := vectorstore.NewFlatStore(cfg.IndexDir, cfg.VectorSize)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector index: %w", err)
		}
		slog.InfoContext(ctx, "Vector index opened", "dir", cfg.IndexDir, "vector_size", cfg.VectorSize)
		return store, nil
	}
}

// ValidateEmbedder embeds a sample text and checks the vector size.
func (a *App) ValidateEmbedder(ctx context.Context) error {
	vectors, err := a.Embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		return fmt.Errorf("failed to validate embedding client: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) != a.Config.VectorSize {
		return fmt.Errorf("embedding vector size mismatch: expected %d", a.Config.VectorSize)
	}
	slog.InfoContext(ctx, "Embedding client validated", "vector_size", a.Config.VectorSize)
	return nil
}

// IndexAll indexes every supported file in the documents folder.
func (a *App) IndexAll(ctx context.Context) (*indexer.IndexStats, error) {
	return a.Pipeline.IndexAll(ctx)
}

// Watch re-indexes the documents folder on change until ctx is done. It
// returns nil immediately when watching is disabled.
func (a *App) Watch(ctx context.Context) error {
	if !a.Config.WatchDocuments {
		return nil
	}
	return indexer.NewWatcher(a.Config.DocumentsDir, a.Pipeline, indexer.DefaultDebounce).Run(ctx)
}

// Close releases the database and the vector store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
