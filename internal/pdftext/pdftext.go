// Package pdftext extracts plain text from PDF pages.
package pdftext

import (
	"fmt"
	"math"
	"os"
	"strings"

	"rsc.io/pdf"
)

// lineTolerance is the vertical distance under which two text runs are
// considered part of the same line.
const lineTolerance = 2.0

// PageTexts returns the text of the first maxPages pages of the PDF at path,
// one string per page with lines separated by newlines. maxPages <= 0 reads
// every page. Empty pages yield empty strings so indexes match page numbers.
func PageTexts(path string, maxPages int) (texts []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}

	// rsc.io/pdf panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			texts = nil
			err = fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	n := reader.NumPage()
	if maxPages > 0 && maxPages < n {
		n = maxPages
	}

	texts = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, pageText(page.Content().Text))
	}
	return texts, nil
}

// pageText joins text runs in content order, starting a new line whenever the
// baseline moves.
func pageText(runs []pdf.Text) string {
	var sb strings.Builder
	lastY := math.NaN()
	lastEnd := math.NaN()
	for _, t := range runs {
		s := strings.ReplaceAll(t.S, "\x00", "")
		if s == "" {
			continue
		}
		switch {
		case math.IsNaN(lastY):
		case math.Abs(t.Y-lastY) > lineTolerance:
			sb.WriteByte('\n')
		case t.X-lastEnd > t.FontSize*0.2:
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
		lastY = t.Y
		lastEnd = t.X + t.W
	}
	return sb.String()
}
