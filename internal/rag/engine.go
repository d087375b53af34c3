package rag

import (
	"context"
	"math"
	"time"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/format"
	"docqa-ai/internal/query"
)

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine interface {
	// Ask answers a question using RAG by retrieving relevant chunks and generating an answer.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)

	// AskWithProgress is Ask with a callback invoked once retrieval finishes.
	AskWithProgress(ctx context.Context, req AskRequest, progress ProgressFunc) (AskResponse, error)
}

// ProgressFunc receives the number of chunks retrieval returned.
type ProgressFunc func(retrieved int)

// ragEngine implements the Engine interface.
type ragEngine struct {
	retriever  *Retriever
	composer   *Composer
	classifier *query.Classifier
	now        func() time.Time
}

// NewEngine creates a new RAG engine.
func NewEngine(retriever *Retriever, composer *Composer, classifier *query.Classifier) Engine {
	return &ragEngine{
		retriever:  retriever,
		composer:   composer,
		classifier: classifier,
		now:        time.Now,
	}
}

// Ask answers a question using RAG.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	return e.AskWithProgress(ctx, req, nil)
}

// AskWithProgress normalizes the question, retrieves context, composes the
// answer and formats it.
func (e *ragEngine) AskWithProgress(ctx context.Context, req AskRequest, progress ProgressFunc) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := e.now()

	normalized := query.Normalize(req.Query)
	logger.InfoContext(ctx, "RAG query started",
		"query", req.Query,
		"normalized", normalized,
		"top_k", req.TopK,
		"filters", req.Filters,
		"namespace", req.Namespace,
	)

	var retrieved []Chunk
	if normalized != "" {
		var err error
		retrieved, err = e.retriever.Retrieve(ctx, RetrieveRequest{
			Query:     normalized,
			TopK:      req.TopK,
			Filters:   req.Filters,
			Namespace: req.Namespace,
		})
		if err != nil {
			return AskResponse{}, err
		}
	}
	if progress != nil {
		progress(len(retrieved))
	}

	answer, s, err := e.composer.compose(ctx, normalized, retrieved)
	if err != nil {
		return AskResponse{}, err
	}

	if s == strategyGenerated {
		answer.Answer = format.Format(ctx, answer.Answer, format.Options{
			ForceBullets: e.classifier.WantsBullets(req.Query),
			Unified:      !e.classifier.Classify(req.Query).Has(query.Narrative),
		})
		answer.Confidence = AnswerConfidence(retrieved, answer.Answer)
	}

	elapsed := e.now().Sub(start).Seconds()
	resp := AskResponse{
		Answer:          answer,
		QueryProcessed:  normalized,
		ResponseTime:    math.Round(elapsed*1000) / 1000,
		ChunksRetrieved: len(retrieved),
	}

	logger.InfoContext(ctx, "RAG query completed",
		"query_id", resp.QueryID,
		"strategy", s.String(),
		"chunks", resp.ChunksRetrieved,
		"sources", len(resp.Sources),
		"confidence", resp.Confidence,
		"response_time", resp.ResponseTime,
	)
	return resp, nil
}
