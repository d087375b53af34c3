package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func fakePages(pages ...string) PageTextFunc {
	return func(path string, maxPages int) ([]string, error) {
		if maxPages > 0 && len(pages) > maxPages {
			return pages[:maxPages], nil
		}
		return pages, nil
	}
}

func TestSnippet_TruncatesAtSentenceBreak(t *testing.T) {
	head := "Este es un fragmento largo del documento " + strings.Repeat("a", 139) + "."
	if utf8.RuneCountInString(head) != 181 || head[180] != '.' {
		t.Fatalf("bad fixture: len %d", len(head))
	}
	text := head + " " + strings.Repeat("b", 68)
	if utf8.RuneCountInString(text) != 250 {
		t.Fatalf("bad fixture: len %d", utf8.RuneCountInString(text))
	}

	got := Snippet(text)

	want := head[:180] + "..."
	if got != want {
		t.Errorf("Snippet() = %q (len %d), want %q", got, len(got), want)
	}
}

func TestSnippet_FallsBackToEarlyWordBreak(t *testing.T) {
	text := "Consulte el enlace " + strings.Repeat("x", 240)

	got := Snippet(text)

	want := "Consulte el enlace..."
	if got != want {
		t.Errorf("Snippet() = %q, want %q", got, want)
	}
}

func TestTruncateSnippet_HardCutWithoutSpaces(t *testing.T) {
	text := strings.Repeat("x", 250)

	got := truncateSnippet(text)

	want := text[:snippetMaxLen] + "..."
	if got != want {
		t.Errorf("truncateSnippet() = %q, want %q", got, want)
	}
}

func TestSnippet_Cleanup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: NoSnippet},
		{name: "single word", in: "hola", want: NoSnippet},
		{name: "whitespace and control characters", in: "el\tplazo\x00 vence\n\nhoy", want: "El plazo vence hoy."},
		{name: "space before punctuation", in: "primero , segundo ; tercero", want: "Primero, segundo; tercero."},
		{name: "space after punctuation", in: "uno,dos.Tres", want: "Uno, dos. Tres."},
		{name: "smart quotes and dashes", in: "dijo “hola” – ‘adiós’", want: `Dijo "hola" - 'adiós'.`},
		{name: "digit letter boundaries", in: "página3 del anexo2024b", want: "Página 3 del anexo 2024 b."},
		{name: "keeps terminal punctuation", in: "¿cuándo vence el plazo?", want: "¿cuándo vence el plazo?"},
		{name: "toc leader reduced to heading", in: "101 NOTICIAS GENERALES .......... 124", want: "NOTICIAS GENERALES."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snippet(tt.in); got != tt.want {
				t.Errorf("Snippet(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSourceNormalizer_Normalize(t *testing.T) {
	resolver := NewPageOffsetResolver(fakePages("Portada", "Índice general", "Capítulo uno\npágina 5\nTexto"))
	n := NewSourceNormalizer(resolver)

	tests := []struct {
		name     string
		chunk    Chunk
		wantPage *int
		wantSrc  string
	}{
		{
			name:     "pdf page corrected by offset",
			chunk:    Chunk{Text: proseText, Source: "Informe.pdf", SourcePath: "/docs/Informe.pdf", Page: intPtr(6), Score: 0.8},
			wantPage: intPtr(8),
			wantSrc:  "Informe.pdf",
		},
		{
			name:     "non pdf page untouched",
			chunk:    Chunk{Text: proseText, Source: "notas.docx", SourcePath: "/docs/notas.docx", Page: intPtr(6), Score: 0.8},
			wantPage: intPtr(6),
			wantSrc:  "notas.docx",
		},
		{
			name:     "page-less chunk",
			chunk:    Chunk{Text: proseText, Source: "notas.txt", Score: 0.8},
			wantPage: nil,
			wantSrc:  "notas.txt",
		},
		{
			name:     "missing source",
			chunk:    Chunk{Text: proseText, Score: 0.8},
			wantPage: nil,
			wantSrc:  UnknownSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(context.Background(), tt.chunk)
			if got.Source != tt.wantSrc {
				t.Errorf("Source = %q, want %q", got.Source, tt.wantSrc)
			}
			switch {
			case tt.wantPage == nil && got.Page != nil:
				t.Errorf("Page = %d, want nil", *got.Page)
			case tt.wantPage != nil && (got.Page == nil || *got.Page != *tt.wantPage):
				t.Errorf("Page = %v, want %d", got.Page, *tt.wantPage)
			}
		})
	}
}

func TestSourceNormalizer_Fields(t *testing.T) {
	n := NewSourceNormalizer(nil)
	c := Chunk{
		Text:           proseText,
		Source:         "a.pdf",
		SourcePath:     "/x/a.pdf",
		Page:           intPtr(2),
		ChunkIndex:     intPtr(40),
		PageChunkIndex: intPtr(1),
		Section:        "Obligaciones",
		Score:          0.4567,
	}

	got := n.Normalize(context.Background(), c)

	if got.RelevanceScore != 0.46 {
		t.Errorf("RelevanceScore = %v, want 0.46", got.RelevanceScore)
	}
	if got.ChunkIndex == nil || *got.ChunkIndex != 1 {
		t.Errorf("ChunkIndex = %v, want page chunk index 1", got.ChunkIndex)
	}
	if got.Section != "Obligaciones" {
		t.Errorf("Section = %q", got.Section)
	}
	if got.Page == nil || *got.Page != 2 {
		t.Errorf("Page = %v, want 2 without resolver", got.Page)
	}
}

func TestSourceNormalizer_PageNeverBelowOne(t *testing.T) {
	// printed "page 1" on the fifth physical page gives offset -4
	resolver := NewPageOffsetResolver(fakePages("", "", "", "", "Page 1"))
	n := NewSourceNormalizer(resolver)

	got := n.Normalize(context.Background(), Chunk{Text: proseText, Source: "a.pdf", Page: intPtr(2), Score: 0.5})
	if got.Page == nil || *got.Page != 1 {
		t.Errorf("Page = %v, want 1", got.Page)
	}
}

func TestPageOffsetResolver_Offset(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  int
	}{
		{name: "spanish label", pages: []string{"Portada", "Índice", "página 5"}, want: 2},
		{name: "english label", pages: []string{"Cover", "Page 3"}, want: 1},
		{name: "lone number line", pages: []string{"Portada", "Introducción\n4\n"}, want: 2},
		{name: "out of range number ignored", pages: []string{"página 500", "texto"}, want: 0},
		{name: "falls through to next pattern", pages: []string{"página 500\n7"}, want: 6},
		{name: "no numbering", pages: []string{"Portada", "Texto sin números"}, want: 0},
		{name: "only first ten pages scanned", pages: append(make([]string, 10), "página 20"), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewPageOffsetResolver(fakePages(tt.pages...))
			if got := r.Offset(context.Background(), "/docs/a.pdf"); got != tt.want {
				t.Errorf("Offset() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPageOffsetResolver_CachesPerPath(t *testing.T) {
	calls := 0
	r := NewPageOffsetResolver(func(path string, maxPages int) ([]string, error) {
		calls++
		return []string{"x", "página 4"}, nil
	})

	for i := 0; i < 3; i++ {
		if got := r.Offset(context.Background(), "/docs/a.pdf"); got != 2 {
			t.Fatalf("Offset() = %d, want 2", got)
		}
	}
	if calls != 1 {
		t.Errorf("page text read %d times, want 1", calls)
	}

	r.Forget("/docs/a.pdf")
	r.Offset(context.Background(), "/docs/a.pdf")
	if calls != 2 {
		t.Errorf("page text read %d times after Forget, want 2", calls)
	}
}

func TestPageOffsetResolver_NonPDFAndErrors(t *testing.T) {
	r := NewPageOffsetResolver(func(path string, maxPages int) ([]string, error) {
		return nil, errors.New("corrupt")
	})

	if got := r.Offset(context.Background(), "/docs/a.docx"); got != 0 {
		t.Errorf("Offset(docx) = %d, want 0", got)
	}
	if got := r.Offset(context.Background(), "/docs/broken.pdf"); got != 0 {
		t.Errorf("Offset(broken) = %d, want 0", got)
	}
}
