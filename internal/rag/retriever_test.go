package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"docqa-ai/internal/rag/mocks"
	"docqa-ai/internal/vectorstore"
	vsmocks "docqa-ai/internal/vectorstore/mocks"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var testVector = []float32{0.1, 0.2, 0.3}

func hit(source string, page, chunk int, score float64) vectorstore.SearchResult {
	return vectorstore.SearchResult{
		PointID: fmt.Sprintf("%s-%d-%d", source, page, chunk),
		Score:   score,
		Meta: map[string]any{
			"text":             fmt.Sprintf("Contenido de %s página %d fragmento %d con texto suficiente.", source, page, chunk),
			"source":           source,
			"source_path":      "/docs/" + source,
			"page":             float64(page),
			"chunk_index":      float64(chunk),
			"page_chunk_index": float64(0),
		},
	}
}

func withMeta(r vectorstore.SearchResult, key string, value any) vectorstore.SearchResult {
	meta := make(map[string]any, len(r.Meta)+1)
	for k, v := range r.Meta {
		meta[k] = v
	}
	meta[key] = value
	r.Meta = meta
	return r
}

type chunkKey struct {
	source string
	page   int
	chunk  int
	score  float64
}

func keys(chunks []Chunk) []chunkKey {
	out := make([]chunkKey, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, chunkKey{c.Source, valueOrZero(c.Page), valueOrZero(c.ChunkIndex), c.Score})
	}
	return out
}

func newTestRetriever(t *testing.T) (*Retriever, *mocks.MockEmbedder, *vsmocks.MockVectorStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	store := vsmocks.NewMockVectorStore(ctrl)
	return NewRetriever(embedder, store, DefaultTopK), embedder, store
}

func TestRetriever_Retrieve_Ranking(t *testing.T) {
	r, embedder, store := newTestRetriever(t)

	embedder.EXPECT().EmbedTexts(gomock.Any(), []string{"consulta"}).Return([][]float32{testVector}, nil).Times(2)
	store.EXPECT().Search(gomock.Any(), testVector, 15).Return([]vectorstore.SearchResult{
		hit("B.pdf", 1, 0, 0.8),
		hit("A.pdf", 2, 0, 0.8),
		hit("A.pdf", 1, 5, 0.8),
		hit("A.pdf", 1, 2, 0.8),
		hit("C.pdf", 1, 0, 0.9),
		hit("D.pdf", 1, 0, 0.1),
	}, nil).Times(2)

	want := []chunkKey{
		{"C.pdf", 1, 0, 0.9},
		{"A.pdf", 1, 2, 0.8},
		{"A.pdf", 1, 5, 0.8},
		{"A.pdf", 2, 0, 0.8},
		{"B.pdf", 1, 0, 0.8},
	}

	req := RetrieveRequest{Query: "consulta"}
	first, err := r.Retrieve(context.Background(), req)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got := keys(first); !reflect.DeepEqual(got, want) {
		t.Errorf("Retrieve() = %v, want %v", got, want)
	}

	second, err := r.Retrieve(context.Background(), req)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !reflect.DeepEqual(keys(first), keys(second)) {
		t.Errorf("Retrieve() not deterministic: %v then %v", keys(first), keys(second))
	}
}

func TestRetriever_Retrieve_NilPageSortsAsZero(t *testing.T) {
	r, embedder, store := newTestRetriever(t)

	noPage := hit("A.txt", 0, 3, 0.5)
	delete(noPage.Meta, "page")

	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil)
	store.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return([]vectorstore.SearchResult{
		hit("A.txt", 1, 0, 0.5),
		noPage,
	}, nil)

	got, err := r.Retrieve(context.Background(), RetrieveRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Retrieve() returned %d chunks, want 2", len(got))
	}
	if got[0].Page != nil {
		t.Errorf("first chunk page = %d, want nil", *got[0].Page)
	}
}

func TestRetriever_Retrieve_Dedup(t *testing.T) {
	r, embedder, store := newTestRetriever(t)

	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil)
	store.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return([]vectorstore.SearchResult{
		hit("A.pdf", 1, 0, 0.4),
		hit("A.pdf", 1, 0, 0.7),
		hit("A.pdf", 1, 0, 0.5),
		hit("A.pdf", 1, 1, 0.3),
	}, nil)

	got, err := r.Retrieve(context.Background(), RetrieveRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	want := []chunkKey{
		{"A.pdf", 1, 0, 0.7},
		{"A.pdf", 1, 1, 0.3},
	}
	if !reflect.DeepEqual(keys(got), want) {
		t.Errorf("Retrieve() = %v, want %v", keys(got), want)
	}
}

func TestRetriever_Retrieve_TopK(t *testing.T) {
	tests := []struct {
		name      string
		topK      int
		wantFetch int
	}{
		{name: "default", topK: 0, wantFetch: 15},
		{name: "negative uses default", topK: -3, wantFetch: 15},
		{name: "explicit", topK: 2, wantFetch: 6},
		{name: "capped", topK: 50, wantFetch: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, embedder, store := newTestRetriever(t)

			results := make([]vectorstore.SearchResult, 0, 30)
			for i := 0; i < 30; i++ {
				results = append(results, hit("A.pdf", i, i, 0.9-float64(i)*0.01))
			}

			embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil)
			store.EXPECT().Search(gomock.Any(), gomock.Any(), tt.wantFetch).Return(results, nil)

			got, err := r.Retrieve(context.Background(), RetrieveRequest{Query: "q", TopK: tt.topK})
			if err != nil {
				t.Fatalf("Retrieve() error = %v", err)
			}
			if want := tt.wantFetch / 3; len(got) != want {
				t.Errorf("Retrieve() returned %d chunks, want %d", len(got), want)
			}
		})
	}
}

func TestRetriever_Retrieve_Filters(t *testing.T) {
	results := []vectorstore.SearchResult{
		withMeta(hit("Informe_2023.pdf", 1, 0, 0.9), "section", "Resumen Ejecutivo"),
		withMeta(hit("Manual.docx", 3, 1, 0.8), "section", "Instalación"),
		withMeta(hit("notas.txt", 2, 2, 0.7), "author", "Ana"),
	}

	tests := []struct {
		name    string
		filters map[string]any
		want    []string
	}{
		{
			name:    "source substring case insensitive",
			filters: map[string]any{"source": "INFORME"},
			want:    []string{"Informe_2023.pdf"},
		},
		{
			name:    "source basename without extension",
			filters: map[string]any{"source_path": "manual"},
			want:    []string{"Manual.docx"},
		},
		{
			name:    "list matches any element",
			filters: map[string]any{"source": []any{"nada", "notas"}},
			want:    []string{"notas.txt"},
		},
		{
			name:    "section substring",
			filters: map[string]any{"section": "ejecutivo"},
			want:    []string{"Informe_2023.pdf"},
		},
		{
			name:    "other fields exact after lowercasing",
			filters: map[string]any{"author": "ana"},
			want:    []string{"notas.txt"},
		},
		{
			name:    "numeric field",
			filters: map[string]any{"page": 3},
			want:    []string{"Manual.docx"},
		},
		{
			name:    "blank value imposes nothing",
			filters: map[string]any{"source": "  "},
			want:    []string{"Informe_2023.pdf", "Manual.docx", "notas.txt"},
		},
		{
			name:    "all filters must match",
			filters: map[string]any{"source": "manual", "section": "resumen"},
			want:    []string{"Informe_2023.pdf", "Manual.docx", "notas.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, embedder, store := newTestRetriever(t)
			embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil)
			store.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(results, nil).MinTimes(1).MaxTimes(2)

			got, err := r.Retrieve(context.Background(), RetrieveRequest{Query: "q", Filters: tt.filters})
			if err != nil {
				t.Fatalf("Retrieve() error = %v", err)
			}
			var sources []string
			for _, c := range got {
				sources = append(sources, c.Source)
			}
			if !reflect.DeepEqual(sources, tt.want) {
				t.Errorf("Retrieve() sources = %v, want %v", sources, tt.want)
			}
		})
	}
}

func TestRetriever_Retrieve_FilterFallbackMatchesUnfiltered(t *testing.T) {
	results := []vectorstore.SearchResult{
		hit("A.pdf", 1, 0, 0.9),
		hit("B.pdf", 1, 0, 0.6),
	}

	r, embedder, store := newTestRetriever(t)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil).Times(2)
	// filtered call searches twice (strict then relaxed), unfiltered once
	store.EXPECT().Search(gomock.Any(), testVector, 15).Return(results, nil).Times(3)

	filtered, err := r.Retrieve(context.Background(), RetrieveRequest{
		Query:   "q",
		Filters: map[string]any{"source": "inexistente"},
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	unfiltered, err := r.Retrieve(context.Background(), RetrieveRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !reflect.DeepEqual(keys(filtered), keys(unfiltered)) {
		t.Errorf("filtered = %v, unfiltered = %v", keys(filtered), keys(unfiltered))
	}
}

func TestRetriever_Retrieve_Namespace(t *testing.T) {
	t.Run("ignored when no chunk carries a namespace", func(t *testing.T) {
		r, embedder, store := newTestRetriever(t)
		embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil)
		store.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return([]vectorstore.SearchResult{
			hit("A.pdf", 1, 0, 0.9),
			hit("B.pdf", 1, 0, 0.8),
		}, nil).Times(1)

		got, err := r.Retrieve(context.Background(), RetrieveRequest{Query: "q", Namespace: "legal"})
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("Retrieve() returned %d chunks, want 2", len(got))
		}
	})

	t.Run("applied when present", func(t *testing.T) {
		r, embedder, store := newTestRetriever(t)
		embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil)
		store.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return([]vectorstore.SearchResult{
			withMeta(hit("A.pdf", 1, 0, 0.9), "namespace", "rrhh"),
			withMeta(hit("B.pdf", 1, 0, 0.8), "namespace", "legal"),
			hit("C.pdf", 1, 0, 0.7),
		}, nil).Times(1)

		got, err := r.Retrieve(context.Background(), RetrieveRequest{Query: "q", Namespace: "legal"})
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if len(got) != 1 || got[0].Source != "B.pdf" {
			t.Errorf("Retrieve() = %v, want only B.pdf", keys(got))
		}
	})

	t.Run("compared case-insensitively", func(t *testing.T) {
		r, embedder, store := newTestRetriever(t)
		embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil)
		store.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return([]vectorstore.SearchResult{
			withMeta(hit("A.pdf", 1, 0, 0.9), "namespace", "rrhh"),
			withMeta(hit("B.pdf", 1, 0, 0.8), "namespace", "legal"),
		}, nil).Times(1)

		got, err := r.Retrieve(context.Background(), RetrieveRequest{Query: "q", Namespace: "Legal"})
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		want := []chunkKey{{"B.pdf", 1, 0, 0.8}}
		if !reflect.DeepEqual(keys(got), want) {
			t.Errorf("Retrieve() = %v, want %v", keys(got), want)
		}
	})

	t.Run("ignored when filters match only chunks without one", func(t *testing.T) {
		r, embedder, store := newTestRetriever(t)
		embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil)
		store.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return([]vectorstore.SearchResult{
			withMeta(hit("A.pdf", 1, 0, 0.9), "namespace", "rrhh"),
			hit("C.pdf", 1, 0, 0.5),
		}, nil).Times(1)

		got, err := r.Retrieve(context.Background(), RetrieveRequest{
			Query:     "q",
			Filters:   map[string]any{"source": "C"},
			Namespace: "legal",
		})
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		want := []chunkKey{{"C.pdf", 1, 0, 0.5}}
		if !reflect.DeepEqual(keys(got), want) {
			t.Errorf("Retrieve() = %v, want %v", keys(got), want)
		}
	})
}

func TestRetriever_Retrieve_EmptyIndex(t *testing.T) {
	r, embedder, store := newTestRetriever(t)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil)
	store.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	got, err := r.Retrieve(context.Background(), RetrieveRequest{
		Query:   "q",
		Filters: map[string]any{"source": "x"},
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Retrieve() returned %d chunks, want 0", len(got))
	}
}

func TestRetriever_Retrieve_Errors(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		r, embedder, _ := newTestRetriever(t)
		embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, errors.New("missing credentials"))

		_, err := r.Retrieve(context.Background(), RetrieveRequest{Query: "q"})
		if !errors.Is(err, ErrEmbedding) {
			t.Errorf("Retrieve() error = %v, want ErrEmbedding", err)
		}
	})

	t.Run("no embedding returned", func(t *testing.T) {
		r, embedder, _ := newTestRetriever(t)
		embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{}, nil)

		if _, err := r.Retrieve(context.Background(), RetrieveRequest{Query: "q"}); err == nil {
			t.Error("Retrieve() expected error")
		}
	})

	t.Run("search failure", func(t *testing.T) {
		r, embedder, store := newTestRetriever(t)
		embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil)
		store.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("disk"))

		_, err := r.Retrieve(context.Background(), RetrieveRequest{Query: "q"})
		if err == nil {
			t.Fatal("Retrieve() expected error")
		}
		if !strings.Contains(err.Error(), "failed to search") || !errors.Is(err, ErrVectorStore) {
			t.Errorf("Retrieve() error = %v, want search failure", err)
		}
	})
}

func TestChunkFromResult_Defaults(t *testing.T) {
	c := chunkFromResult(vectorstore.SearchResult{
		Score: 0.5,
		Meta: map[string]any{
			"text":        "hola",
			"source":      "a.txt",
			"page":        nil,
			"chunk_index": int64(4),
		},
	})
	if c.SourcePath != "a.txt" {
		t.Errorf("SourcePath = %q, want source fallback", c.SourcePath)
	}
	if c.Page != nil {
		t.Errorf("Page = %v, want nil", *c.Page)
	}
	if c.ChunkIndex == nil || *c.ChunkIndex != 4 {
		t.Errorf("ChunkIndex = %v, want 4", c.ChunkIndex)
	}
	if c.HasNamespace {
		t.Error("HasNamespace = true, want false")
	}
}
