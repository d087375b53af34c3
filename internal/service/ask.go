package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks docqa-ai/internal/service Engine
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ask_service.go -package=mocks -mock_names=AskService=MockAskService docqa-ai/internal/service AskService

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/rag"
	"docqa-ai/internal/storage"
)

// DefaultTokenDelay paces streamed answer tokens.
const DefaultTokenDelay = 20 * time.Millisecond

// Stream event types.
const (
	EventStatus   = "status"
	EventContent  = "content"
	EventComplete = "complete"
)

var tokenRe = regexp.MustCompile(`\s+|\S+`)

// Engine answers questions against the indexed documents.
// This interface is defined from the service layer's perspective (consumer-first).
type Engine interface {
	Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error)
	AskWithProgress(ctx context.Context, req rag.AskRequest, progress rag.ProgressFunc) (rag.AskResponse, error)
}

// StreamEvent is one server-sent event of a streamed answer.
type StreamEvent struct {
	Type         string         `json:"type"`
	Message      string         `json:"message,omitempty"`
	Content      string         `json:"content,omitempty"`
	Progress     float64        `json:"progress,omitempty"`
	Sources      []rag.Citation `json:"sources,omitempty"`
	Confidence   rag.Confidence `json:"confidence,omitempty"`
	ResponseTime float64        `json:"response_time,omitempty"`
	QueryID      string         `json:"query_id,omitempty"`
}

// AskService answers questions and keeps query metrics.
type AskService interface {
	// Ask answers a question.
	Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error)
	// AskStream answers a question as a sequence of events: two status
	// events, the formatted answer token by token, then a complete event.
	AskStream(ctx context.Context, req rag.AskRequest, callback func(StreamEvent) error) error
	// Metrics summarizes recorded queries.
	Metrics(ctx context.Context) (*storage.MetricSummary, error)
}

// askService implements AskService.
type askService struct {
	engine     Engine
	metrics    storage.MetricStore
	tokenDelay time.Duration
	now        func() time.Time
}

// NewAskService creates a new AskService. tokenDelay paces streamed tokens;
// zero sends them back to back.
func NewAskService(engine Engine, metrics storage.MetricStore, tokenDelay time.Duration) AskService {
	return &askService{
		engine:     engine,
		metrics:    metrics,
		tokenDelay: tokenDelay,
		now:        time.Now,
	}
}

func validateAskRequest(req rag.AskRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return &ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if req.TopK < 0 {
		return &ValidationError{Field: "top_k", Message: "must not be negative"}
	}
	return nil
}

// Ask answers a question and records its metrics.
func (s *askService) Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateAskRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid ask request", "error", err)
		return rag.AskResponse{}, err
	}

	resp, err := s.engine.Ask(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer question", "error", err)
		return rag.AskResponse{}, wrapCollaboratorError(err, "failed to answer question")
	}

	s.record(ctx, req.Query, resp.Answer, resp.ResponseTime, resp.ChunksRetrieved)

	logger.InfoContext(ctx, "question answered",
		"query_id", resp.QueryID,
		"confidence", resp.Confidence,
		"sources", len(resp.Sources),
		"response_time", resp.ResponseTime,
	)
	return resp, nil
}

// AskStream answers a question and streams it through callback. A callback
// error stops the stream and is returned.
func (s *askService) AskStream(ctx context.Context, req rag.AskRequest, callback func(StreamEvent) error) error {
	logger := contextutil.LoggerFromContext(ctx)
	start := s.now()

	if err := validateAskRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid streaming ask request", "error", err)
		return err
	}

	if err := callback(StreamEvent{Type: EventStatus, Message: "Procesando consulta..."}); err != nil {
		return err
	}

	var progressErr error
	resp, err := s.engine.AskWithProgress(ctx, req, func(retrieved int) {
		progressErr = callback(StreamEvent{
			Type:    EventStatus,
			Message: fmt.Sprintf("Encontrados %d fragmentos relevantes", retrieved),
		})
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer streamed question", "error", err)
		return wrapCollaboratorError(err, "failed to answer question")
	}
	if progressErr != nil {
		return progressErr
	}

	tokens := tokenRe.FindAllString(resp.Answer.Answer, -1)
	total := max(1, len(tokens))
	for i, token := range tokens {
		if err := callback(StreamEvent{
			Type:     EventContent,
			Content:  token,
			Progress: float64(i+1) / float64(total),
		}); err != nil {
			return err
		}
		if s.tokenDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.tokenDelay):
			}
		}
	}

	elapsed := roundSeconds(s.now().Sub(start))
	s.record(ctx, req.Query, resp.Answer, elapsed, resp.ChunksRetrieved)

	logger.InfoContext(ctx, "streamed question answered", "query_id", resp.QueryID, "tokens", len(tokens))
	return callback(StreamEvent{
		Type:         EventComplete,
		Sources:      resp.Sources,
		Confidence:   resp.Confidence,
		ResponseTime: elapsed,
		QueryID:      resp.QueryID,
	})
}

// record stores a metric row. Failures are logged, never returned.
func (s *askService) record(ctx context.Context, q string, answer rag.Answer, responseTime float64, chunks int) {
	if s.metrics == nil {
		return
	}
	err := s.metrics.Record(ctx, storage.MetricRecord{
		QueryID:         answer.QueryID,
		Query:           q,
		ResponseTime:    responseTime,
		Confidence:      string(answer.Confidence),
		ChunksRetrieved: chunks,
	})
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to record query metrics", "error", err)
	}
}

// Metrics summarizes recorded queries.
func (s *askService) Metrics(ctx context.Context) (*storage.MetricSummary, error) {
	if s.metrics == nil {
		return &storage.MetricSummary{ConfidenceDistribution: map[string]int{}, RecentQueries: []storage.RecentQuery{}}, nil
	}
	summary, err := s.metrics.Summary(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to load metrics")
	}
	return summary, nil
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
