package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"docqa-ai/internal/query"
	"docqa-ai/internal/rag/mocks"
	"docqa-ai/internal/vectorstore"
	vsmocks "docqa-ai/internal/vectorstore/mocks"
)

type engineMocks struct {
	embedder  *mocks.MockEmbedder
	generator *mocks.MockGenerator
	store     *vsmocks.MockVectorStore
}

func newTestEngine(t *testing.T) (Engine, engineMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := engineMocks{
		embedder:  mocks.NewMockEmbedder(ctrl),
		generator: mocks.NewMockGenerator(ctrl),
		store:     vsmocks.NewMockVectorStore(ctrl),
	}
	classifier := query.NewClassifier(query.DefaultKeywords())
	retriever := NewRetriever(m.embedder, m.store, DefaultTopK)
	composer := NewComposer(m.generator, classifier, NewSourceNormalizer(nil), DefaultEvidenceThreshold)
	return NewEngine(retriever, composer, classifier), m
}

func TestEngine_Ask(t *testing.T) {
	engine, m := newTestEngine(t)

	m.embedder.EXPECT().EmbedTexts(gomock.Any(), []string{"cuáles son los servicios?"}).Return([][]float32{testVector}, nil)
	m.store.EXPECT().Search(gomock.Any(), testVector, 15).Return([]vectorstore.SearchResult{
		hit("catalogo.pdf", 1, 0, 0.9),
		hit("catalogo.pdf", 2, 1, 0.8),
	}, nil)
	m.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("Los servicios incluyen: hosting, correo y soporte", nil)

	var progressed int
	resp, err := engine.AskWithProgress(context.Background(), AskRequest{Query: "¿Cuáles son los servicios?"}, func(n int) {
		progressed = n
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if resp.QueryProcessed != "cuáles son los servicios?" {
		t.Errorf("QueryProcessed = %q", resp.QueryProcessed)
	}
	if resp.ChunksRetrieved != 2 || progressed != 2 {
		t.Errorf("ChunksRetrieved = %d, progress = %d, want 2", resp.ChunksRetrieved, progressed)
	}
	if !strings.Contains(resp.Answer.Answer, "• Hosting") {
		t.Errorf("Answer = %q, want bullet list", resp.Answer.Answer)
	}
	if len(resp.Sources) == 0 {
		t.Error("Sources is empty")
	}
	if resp.QueryID == "" {
		t.Error("QueryID is empty")
	}
	if resp.ResponseTime < 0 {
		t.Errorf("ResponseTime = %v", resp.ResponseTime)
	}
}

func TestEngine_Ask_WhichDocumentIsNotReformatted(t *testing.T) {
	engine, m := newTestEngine(t)

	m.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{testVector}, nil)
	m.store.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return([]vectorstore.SearchResult{
		hit("A.pdf", 1, 0, 0.9),
		hit("B.pdf", 1, 0, 0.3),
	}, nil)

	resp, err := engine.Ask(context.Background(), AskRequest{Query: "¿Qué documento habla de esto?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer.Answer != "El documento es: A.pdf." {
		t.Errorf("Answer = %q", resp.Answer.Answer)
	}
	if resp.Confidence != ConfidenceMedium {
		t.Errorf("Confidence = %q, want medium", resp.Confidence)
	}
}

func TestEngine_Ask_EmptyQuery(t *testing.T) {
	engine, _ := newTestEngine(t)

	resp, err := engine.Ask(context.Background(), AskRequest{Query: "   "})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer.Answer != InsufficientInformation {
		t.Errorf("Answer = %q, want insufficient information", resp.Answer.Answer)
	}
	if resp.Confidence != ConfidenceLow {
		t.Errorf("Confidence = %q, want low", resp.Confidence)
	}
}

func TestEngine_Ask_EmbeddingFailure(t *testing.T) {
	engine, m := newTestEngine(t)
	m.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, errors.New("missing api key"))

	_, err := engine.Ask(context.Background(), AskRequest{Query: "pregunta"})
	if err == nil {
		t.Fatal("Ask() expected error")
	}
	if !strings.Contains(err.Error(), "embed") {
		t.Errorf("Ask() error = %v, want embedding failure", err)
	}
}
