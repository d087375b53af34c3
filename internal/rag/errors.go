package rag

import "errors"

// Collaborator failures are wrapped with these so callers can map them.
var (
	ErrEmbedding   = errors.New("embedding service error")
	ErrGeneration  = errors.New("llm service error")
	ErrVectorStore = errors.New("vector store error")
)
