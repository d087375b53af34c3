package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks docqa-ai/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// DocumentStore defines the interface for the indexed-document registry.
type DocumentStore interface {
	// GetByPath gets a document by its path. Returns ErrNotFound if not found.
	GetByPath(ctx context.Context, path string) (*DocumentRecord, error)
	// Upsert inserts a new document or updates the existing one with the same path.
	// If doc.ID is empty, a new UUID is generated.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// List returns all documents ordered by source name.
	List(ctx context.Context) ([]DocumentRecord, error)
	// Delete removes a document by path. Deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// GetByPath gets a document by its path. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByPath(ctx context.Context, path string) (*DocumentRecord, error) {
	var doc DocumentRecord
	var indexedAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, path, source, hash, chunk_count, indexed_at FROM documents WHERE path = ?",
		path,
	).Scan(&doc.ID, &doc.Path, &doc.Source, &doc.Hash, &doc.ChunkCount, &indexedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	doc.IndexedAt, err = parseTimestamp(indexedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse indexed_at timestamp: %w", err)
	}

	return &doc, nil
}

// Upsert inserts a new document or updates an existing one.
// On conflict the stored ID is kept and copied back into doc.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO documents (id, path, source, hash, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (path) DO UPDATE SET
			source = excluded.source,
			hash = excluded.hash,
			chunk_count = excluded.chunk_count,
			indexed_at = CURRENT_TIMESTAMP
		RETURNING id`,
		doc.ID, doc.Path, doc.Source, doc.Hash, doc.ChunkCount,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// List returns all documents ordered by source name.
// Returns an empty slice if none are indexed (not an error).
func (r *DocumentRepo) List(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, path, source, hash, chunk_count, indexed_at FROM documents ORDER BY source, path",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := []DocumentRecord{}
	for rows.Next() {
		var doc DocumentRecord
		var indexedAt string
		if err := rows.Scan(&doc.ID, &doc.Path, &doc.Source, &doc.Hash, &doc.ChunkCount, &indexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if doc.IndexedAt, err = parseTimestamp(indexedAt); err != nil {
			return nil, fmt.Errorf("failed to parse indexed_at timestamp: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}

// Delete removes a document by path.
func (r *DocumentRepo) Delete(ctx context.Context, path string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
