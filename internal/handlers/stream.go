package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/rag"
	"docqa-ai/internal/service"
)

// StreamHandler streams answers as Server-Sent Events.
type StreamHandler struct {
	askService service.AskService
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(askService service.AskService) *StreamHandler {
	return &StreamHandler{
		askService: askService,
	}
}

// ServeHTTP handles streaming ask requests. Each event is written as
// "data: <json>\n\n"; failures after the stream started are sent as an
// event of type "error".
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req rag.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body for streaming", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	started := false
	err := h.askService.AskStream(ctx, req, func(ev service.StreamEvent) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := writeEvent(w, ev); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err == nil {
		return
	}

	if !started {
		handleServiceError(ctx, w, err, "Failed to answer question")
		return
	}

	logger.ErrorContext(ctx, "error streaming answer", "error", err)
	_ = writeEvent(w, map[string]string{"type": "error", "message": err.Error()})
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
