package handlers

import (
	"net/http"

	"docqa-ai/internal/service"
)

// MetricsHandler reports recorded query metrics.
type MetricsHandler struct {
	askService service.AskService
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(askService service.AskService) *MetricsHandler {
	return &MetricsHandler{
		askService: askService,
	}
}

// MessageResponse is a response carrying only a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ServeHTTP handles GET /metrics.
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.askService.Metrics(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to load metrics")
		return
	}
	if summary.TotalQueries == 0 {
		writeJSON(ctx, w, http.StatusOK, MessageResponse{Message: "No hay métricas disponibles"})
		return
	}
	writeJSON(ctx, w, http.StatusOK, summary)
}
