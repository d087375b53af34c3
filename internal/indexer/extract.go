package indexer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"docqa-ai/internal/pdftext"
)

var (
	// ErrUnsupportedFormat is returned for files whose extension has no extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmbedding wraps failures of the embeddings service.
	ErrEmbedding = errors.New("embedding service error")
	// ErrVectorStore wraps failures of the vector index.
	ErrVectorStore = errors.New("vector store error")
)

// SupportedExtensions lists the extensions the pipeline can index.
var SupportedExtensions = []string{".pdf", ".md", ".txt"}

// IsSupported reports whether path has an indexable extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// PageTextFunc extracts per-page text from a PDF.
type PageTextFunc func(path string, maxPages int) ([]string, error)

// Extractor loads a document into text segments by format.
type Extractor struct {
	pageTexts PageTextFunc
	markdown  *MarkdownExtractor
}

// NewExtractor creates an Extractor. A nil pageTexts uses pdftext.PageTexts.
func NewExtractor(pageTexts PageTextFunc) *Extractor {
	if pageTexts == nil {
		pageTexts = pdftext.PageTexts
	}
	return &Extractor{
		pageTexts: pageTexts,
		markdown:  NewMarkdownExtractor(),
	}
}

// Extract returns the document's segments. PDF segments carry 1-based page
// numbers; markdown segments carry their heading as section; text files are a
// single segment.
func (e *Extractor) Extract(path string, content []byte) ([]segment, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err := e.pageTexts(path, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to extract pdf text: %w", err)
		}
		segments := make([]segment, 0, len(pages))
		for i, page := range pages {
			if strings.TrimSpace(page) == "" {
				continue
			}
			n := i + 1
			segments = append(segments, segment{page: &n, text: page})
		}
		return segments, nil

	case ".md":
		return e.markdown.Extract(content), nil

	case ".txt":
		if strings.TrimSpace(string(content)) == "" {
			return nil, nil
		}
		return []segment{{text: string(content)}}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
