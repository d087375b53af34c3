package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"docqa-ai/internal/rag"
	"docqa-ai/internal/service"
	"docqa-ai/internal/service/mocks"
)

// readEvents decodes every "data: " line of an SSE body.
func readEvents(t *testing.T, body string) []map[string]any {
	t.Helper()
	var events []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("invalid event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestStreamHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		mockSetup  func(m *mocks.MockAskService)
		wantStatus int
		wantTypes  []string
	}{
		{
			name: "successful streaming",
			body: `{"query":"¿Cómo se evalúa?"}`,
			mockSetup: func(m *mocks.MockAskService) {
				m.EXPECT().
					AskStream(gomock.Any(), rag.AskRequest{Query: "¿Cómo se evalúa?"}, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ rag.AskRequest, callback func(service.StreamEvent) error) error {
						events := []service.StreamEvent{
							{Type: service.EventStatus, Message: "Procesando consulta..."},
							{Type: service.EventContent, Content: "Hola", Progress: 1},
							{Type: service.EventComplete, QueryID: "q-1", Confidence: rag.ConfidenceLow},
						}
						for _, ev := range events {
							if err := callback(ev); err != nil {
								return err
							}
						}
						return nil
					})
			},
			wantStatus: http.StatusOK,
			wantTypes:  []string{"status", "content", "complete"},
		},
		{
			name:       "invalid JSON body",
			body:       "invalid json",
			mockSetup:  func(*mocks.MockAskService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "validation error before the stream starts",
			body: `{"query":""}`,
			mockSetup: func(m *mocks.MockAskService) {
				m.EXPECT().AskStream(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(&service.ValidationError{Field: "query", Message: "cannot be empty"})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "failure after the stream started",
			body: `{"query":"x"}`,
			mockSetup: func(m *mocks.MockAskService) {
				m.EXPECT().AskStream(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ rag.AskRequest, callback func(service.StreamEvent) error) error {
						if err := callback(service.StreamEvent{Type: service.EventStatus, Message: "Procesando consulta..."}); err != nil {
							return err
						}
						return errors.New("failed to answer question: failed to embed query: 500")
					})
			},
			wantStatus: http.StatusOK,
			wantTypes:  []string{"status", "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockAskService := mocks.NewMockAskService(ctrl)
			tt.mockSetup(mockAskService)
			handler := NewStreamHandler(mockAskService)

			req := httptest.NewRequest(http.MethodPost, "/ask/stream", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantTypes == nil {
				return
			}

			if w.Header().Get("Content-Type") != "text/event-stream" {
				t.Errorf("ServeHTTP() Content-Type = %q", w.Header().Get("Content-Type"))
			}
			events := readEvents(t, w.Body.String())
			if len(events) != len(tt.wantTypes) {
				t.Fatalf("ServeHTTP() sent %d events, want %d", len(events), len(tt.wantTypes))
			}
			for i, want := range tt.wantTypes {
				if events[i]["type"] != want {
					t.Errorf("event %d type = %v, want %s", i, events[i]["type"], want)
				}
			}
		})
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := NewStreamHandler(mocks.NewMockAskService(ctrl))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ask/stream", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("ServeHTTP() status = %v, want 405", w.Code)
	}
}
