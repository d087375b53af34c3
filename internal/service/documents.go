package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_indexer.go -package=mocks docqa-ai/internal/service DocumentIndexer
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_service.go -package=mocks -mock_names=DocumentService=MockDocumentService docqa-ai/internal/service DocumentService

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/indexer"
	"docqa-ai/internal/storage"
)

// Version is reported by the health check.
const Version = "2.0.0"

// listedExtensions are the files the documents folder listing shows.
var listedExtensions = []string{".pdf", ".docx", ".txt", ".md"}

// DocumentIndexer indexes files from the documents folder.
type DocumentIndexer interface {
	Reindex(ctx context.Context, path string) (*indexer.IndexResult, error)
}

// DocumentList is the content of the documents folder.
type DocumentList struct {
	Documents []string `json:"documents"`
	Total     int      `json:"total"`
	Folder    string   `json:"folder"`
	Message   string   `json:"message,omitempty"`
}

// IndexOutcome reports an upload or reindex.
type IndexOutcome struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path,omitempty"`
	Chunks   int    `json:"chunks"`
}

// Health is the service health report.
type Health struct {
	Status                string    `json:"status"`
	Timestamp             time.Time `json:"timestamp"`
	Version               string    `json:"version"`
	DocumentsFolderExists bool      `json:"documents_folder_exists"`
	IndexedDocuments      int       `json:"indexed_documents"`
}

// DocumentService manages the documents folder.
type DocumentService interface {
	// List returns the documents in the folder, sorted by name.
	List(ctx context.Context) (DocumentList, error)
	// Upload saves a file into the folder and indexes it.
	Upload(ctx context.Context, filename string, r io.Reader) (IndexOutcome, error)
	// Reindex re-indexes a file already in the folder. Returns ErrNotFound if it is missing.
	Reindex(ctx context.Context, filename string) (IndexOutcome, error)
	// Health reports folder and index status.
	Health(ctx context.Context) Health
}

// documentService implements DocumentService.
type documentService struct {
	dir       string
	indexer   DocumentIndexer
	documents storage.DocumentStore
	now       func() time.Time
}

// NewDocumentService creates a new DocumentService for dir.
func NewDocumentService(dir string, idx DocumentIndexer, documents storage.DocumentStore) DocumentService {
	return &documentService{
		dir:       dir,
		indexer:   idx,
		documents: documents,
		now:       time.Now,
	}
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// validateFilename accepts a bare file name with an indexable extension.
func validateFilename(field, filename string) error {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) {
		return &ValidationError{Field: field, Message: "must be a plain file name"}
	}
	if !indexer.IsSupported(filename) {
		return &ValidationError{Field: field, Message: "formato no soportado"}
	}
	return nil
}

// List returns the documents in the folder.
func (s *documentService) List(ctx context.Context) (DocumentList, error) {
	list := DocumentList{Documents: []string{}, Folder: s.dir}

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		list.Message = "Carpeta de documentos no existe"
		return list, nil
	}
	if err != nil {
		return DocumentList{}, fmt.Errorf("failed to read documents folder: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name(), listedExtensions) {
			continue
		}
		list.Documents = append(list.Documents, entry.Name())
	}
	sort.Strings(list.Documents)
	list.Total = len(list.Documents)

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "listed documents", "total", list.Total)
	return list, nil
}

// Upload writes r to the folder under filename and indexes it.
func (s *documentService) Upload(ctx context.Context, filename string, r io.Reader) (IndexOutcome, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateFilename("file", filename); err != nil {
		logger.WarnContext(ctx, "rejected upload", "filename", filename, "error", err)
		return IndexOutcome{}, err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return IndexOutcome{}, fmt.Errorf("failed to create documents folder: %w", err)
	}

	path := filepath.Join(s.dir, filename)
	if err := writeFile(path, r); err != nil {
		return IndexOutcome{}, err
	}

	result, err := s.indexer.Reindex(ctx, path)
	if err != nil {
		logger.ErrorContext(ctx, "failed to index uploaded file", "path", path, "error", err)
		return IndexOutcome{}, wrapCollaboratorError(err, "failed to index document")
	}

	logger.InfoContext(ctx, "document uploaded", "path", path, "chunks", len(result.Chunks))
	return IndexOutcome{
		Message:  fmt.Sprintf("Archivo '%s' subido y procesado correctamente.", filename),
		FilePath: path,
		Chunks:   len(result.Chunks),
	}, nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Reindex re-indexes filename regardless of its stored hash.
func (s *documentService) Reindex(ctx context.Context, filename string) (IndexOutcome, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateFilename("filename", filename); err != nil {
		return IndexOutcome{}, err
	}

	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return IndexOutcome{}, fmt.Errorf("archivo '%s' no encontrado: %w", filename, ErrNotFound)
		}
		return IndexOutcome{}, fmt.Errorf("failed to stat document: %w", err)
	}

	result, err := s.indexer.Reindex(ctx, path)
	if err != nil {
		logger.ErrorContext(ctx, "failed to reindex document", "path", path, "error", err)
		return IndexOutcome{}, wrapCollaboratorError(err, "failed to reindex document")
	}

	return IndexOutcome{
		Message:  fmt.Sprintf("Documento '%s' reindexado exitosamente", filename),
		FilePath: path,
		Chunks:   len(result.Chunks),
	}, nil
}

// Health reports the folder state and the number of registered documents.
func (s *documentService) Health(ctx context.Context) Health {
	h := Health{
		Status:    "healthy",
		Timestamp: s.now(),
		Version:   Version,
	}

	if info, err := os.Stat(s.dir); err == nil && info.IsDir() {
		h.DocumentsFolderExists = true
	}

	docs, err := s.documents.List(ctx)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to count indexed documents", "error", err)
		return h
	}
	h.IndexedDocuments = len(docs)
	return h
}
