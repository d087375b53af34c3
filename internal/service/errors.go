package service

import (
	"errors"
	"fmt"

	"docqa-ai/internal/indexer"
	"docqa-ai/internal/rag"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when an external service call fails.
	ErrExternalService = errors.New("external service error")
	// ErrUnavailable is returned when the vector index cannot be reached.
	ErrUnavailable = errors.New("service unavailable")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// wrapCollaboratorError wraps err like WrapError and tags embedding or LLM
// failures with ErrExternalService and vector index failures with
// ErrUnavailable.
func wrapCollaboratorError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rag.ErrVectorStore), errors.Is(err, indexer.ErrVectorStore):
		return fmt.Errorf("%s: %w: %w", msg, ErrUnavailable, err)
	case errors.Is(err, rag.ErrEmbedding), errors.Is(err, rag.ErrGeneration), errors.Is(err, indexer.ErrEmbedding):
		return fmt.Errorf("%s: %w: %w", msg, ErrExternalService, err)
	default:
		return WrapError(err, msg)
	}
}
