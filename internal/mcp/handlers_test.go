package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/mock/gomock"

	"docqa-ai/internal/rag"
	"docqa-ai/internal/service"
	"docqa-ai/internal/service/mocks"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want mcp.TextContent", result.Content[0])
	}
	return text.Text
}

func TestHandlers_AskDocuments(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]any
		mockSetup func(m *mocks.MockAskService)
		wantError bool
		wantText  string
	}{
		{
			name: "answers with arguments",
			args: map[string]any{
				"query":     "¿Cómo se evalúa?",
				"top_k":     float64(3),
				"filters":   map[string]any{"source": "guia.pdf"},
				"namespace": "curso",
			},
			mockSetup: func(m *mocks.MockAskService) {
				m.EXPECT().Ask(gomock.Any(), rag.AskRequest{
					Query:     "¿Cómo se evalúa?",
					TopK:      3,
					Filters:   map[string]any{"source": "guia.pdf"},
					Namespace: "curso",
				}).Return(rag.AskResponse{Answer: rag.Answer{QueryID: "q-1", Answer: "Continua."}}, nil)
			},
			wantText: `"query_id":"q-1"`,
		},
		{
			name:      "missing query",
			args:      map[string]any{},
			mockSetup: func(*mocks.MockAskService) {},
			wantError: true,
		},
		{
			name: "service failure",
			args: map[string]any{"query": "x"},
			mockSetup: func(m *mocks.MockAskService) {
				m.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(rag.AskResponse{}, errors.New("failed to embed query"))
			},
			wantError: true,
			wantText:  "failed to embed query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			askService := mocks.NewMockAskService(ctrl)
			tt.mockSetup(askService)
			h := NewHandlers(askService, mocks.NewMockDocumentService(ctrl))

			result, err := h.AskDocuments(t.Context(), callRequest("ask_documents", tt.args))
			if err != nil {
				t.Fatalf("AskDocuments() error = %v", err)
			}
			if result.IsError != tt.wantError {
				t.Errorf("AskDocuments() IsError = %v, want %v", result.IsError, tt.wantError)
			}
			if tt.wantText != "" && !strings.Contains(resultText(t, result), tt.wantText) {
				t.Errorf("AskDocuments() text = %q, want it to contain %q", resultText(t, result), tt.wantText)
			}
		})
	}
}

func TestHandlers_ListDocuments(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	docs := mocks.NewMockDocumentService(ctrl)
	h := NewHandlers(mocks.NewMockAskService(ctrl), docs)

	docs.EXPECT().List(gomock.Any()).Return(service.DocumentList{Documents: []string{"a.pdf"}, Total: 1}, nil)
	result, err := h.ListDocuments(t.Context(), callRequest("list_documents", nil))
	if err != nil || result.IsError {
		t.Fatalf("ListDocuments() = %+v, %v", result, err)
	}

	var list service.DocumentList
	if err := json.Unmarshal([]byte(resultText(t, result)), &list); err != nil {
		t.Fatalf("ListDocuments() invalid JSON: %v", err)
	}
	if list.Total != 1 || list.Documents[0] != "a.pdf" {
		t.Errorf("ListDocuments() = %+v", list)
	}

	docs.EXPECT().List(gomock.Any()).Return(service.DocumentList{}, errors.New("permission denied"))
	result, _ = h.ListDocuments(t.Context(), callRequest("list_documents", nil))
	if !result.IsError {
		t.Error("ListDocuments() should report service errors")
	}
}

func TestHandlers_ReindexDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	docs := mocks.NewMockDocumentService(ctrl)
	h := NewHandlers(mocks.NewMockAskService(ctrl), docs)

	docs.EXPECT().Reindex(gomock.Any(), "guia.pdf").Return(service.IndexOutcome{Message: "ok", Chunks: 4}, nil)
	result, err := h.ReindexDocument(t.Context(), callRequest("reindex_document", map[string]any{"filename": "guia.pdf"}))
	if err != nil || result.IsError {
		t.Fatalf("ReindexDocument() = %+v, %v", result, err)
	}
	if !strings.Contains(resultText(t, result), `"chunks":4`) {
		t.Errorf("ReindexDocument() text = %q", resultText(t, result))
	}

	result, _ = h.ReindexDocument(t.Context(), callRequest("reindex_document", nil))
	if !result.IsError {
		t.Error("ReindexDocument() without filename should fail")
	}
}

func TestNewServer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server := NewServer(mocks.NewMockAskService(ctrl), mocks.NewMockDocumentService(ctrl))
	if server == nil {
		t.Fatal("NewServer() returned nil")
	}
	resp := server.HandleMessage(t.Context(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("failed to marshal tools/list response: %v", err)
	}
	for _, name := range []string{"ask_documents", "list_documents", "reindex_document"} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Errorf("tool %q not registered: %s", name, data)
		}
	}
}
