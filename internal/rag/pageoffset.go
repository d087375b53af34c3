package rag

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/pdftext"
)

const (
	offsetScanPages = 10
	maxPrintedPage  = 100
)

var printedPagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`página\s+(\d+)`),
	regexp.MustCompile(`page\s+(\d+)`),
	regexp.MustCompile(`(?m)^\s*(\d+)\s*$`),
}

// PageTextFunc returns the text of up to maxPages leading pages of a document.
type PageTextFunc func(path string, maxPages int) ([]string, error)

// PageOffsetResolver computes, per PDF, the difference between printed page
// numbers and physical page positions. Results are cached per path.
type PageOffsetResolver struct {
	mu        sync.Mutex
	offsets   map[string]int
	pageTexts PageTextFunc
}

// NewPageOffsetResolver creates a resolver. A nil fn reads PDFs from disk.
func NewPageOffsetResolver(fn PageTextFunc) *PageOffsetResolver {
	if fn == nil {
		fn = pdftext.PageTexts
	}
	return &PageOffsetResolver{
		offsets:   make(map[string]int),
		pageTexts: fn,
	}
}

// Offset returns printed minus physical page number for the document at path,
// or 0 for non-PDF paths, unreadable files and documents without a
// recognizable page number in their first pages.
func (r *PageOffsetResolver) Offset(ctx context.Context, path string) int {
	if path == "" || !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if off, ok := r.offsets[path]; ok {
		return off
	}

	off := 0
	pages, err := r.pageTexts(path, offsetScanPages)
	if err != nil {
		contextutil.LoggerFromContext(ctx).DebugContext(ctx, "page offset scan failed", "path", path, "error", err)
	} else {
		off = detectOffset(pages)
	}
	r.offsets[path] = off
	return off
}

// Forget drops the cached offset for path so the next lookup rescans it.
func (r *PageOffsetResolver) Forget(path string) {
	r.mu.Lock()
	delete(r.offsets, path)
	r.mu.Unlock()
}

func detectOffset(pages []string) int {
	for i, text := range pages {
		if i >= offsetScanPages {
			break
		}
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)
		for _, re := range printedPagePatterns {
			m := re.FindStringSubmatch(lower)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if n >= 1 && n <= maxPrintedPage {
				return n - (i + 1)
			}
		}
	}
	return 0
}
