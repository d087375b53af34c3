package handlers

import (
	"net/http"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/service"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	documentService service.DocumentService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(documentService service.DocumentService) *HealthHandler {
	return &HealthHandler{
		documentService: documentService,
	}
}

// RootResponse is returned by GET /.
type RootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// swagger:route GET /health healthCheck
//
// # Health check endpoint
//
// Reports whether the documents folder exists and how many documents are
// registered in the index.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Service is up
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	health := h.documentService.Health(ctx)
	health.Timestamp = health.Timestamp.UTC()
	writeJSON(ctx, w, http.StatusOK, health)
}

// Root handles GET / with a short description of the API.
func Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, RootResponse{
		Message: "Asistente de documentos activo. Usa /ask para consultas o /upload para subir documentos.",
		Version: service.Version,
		Endpoints: map[string]string{
			"ask":       "POST /ask",
			"stream":    "POST /ask/stream",
			"upload":    "POST /upload",
			"reindex":   "POST /reindex/{filename}",
			"documents": "GET /documents",
			"metrics":   "GET /metrics",
			"health":    "GET /health",
		},
	})
}
