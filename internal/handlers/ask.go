package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/rag"
	"docqa-ai/internal/service"
)

// AskHandler handles HTTP requests for document questions.
type AskHandler struct {
	askService service.AskService
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(askService service.AskService) *AskHandler {
	return &AskHandler{
		askService: askService,
	}
}

// ServeHTTP handles HTTP requests for document questions.
//
// swagger:route POST /ask askQuestion
//
// # Ask a question about the indexed documents
//
// Accepts a JSON body with `query`, optional `top_k`, `filters` and
// `namespace`. GET is also accepted with `query` and `top_k` as query
// parameters.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Answer with sources and confidence
//	'400':
//	  description: Missing or invalid query
//	'502':
//	  description: Embedding or LLM service error
//	'503':
//	  description: Vector store unavailable
//	'500':
//	  description: Internal server error
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req rag.AskRequest
	switch r.Method {
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.WarnContext(ctx, "invalid request body", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	case http.MethodGet:
		req.Query = r.URL.Query().Get("query")
		if topK := r.URL.Query().Get("top_k"); topK != "" {
			k, err := strconv.Atoi(topK)
			if err != nil {
				writeError(w, http.StatusBadRequest, "top_k must be an integer")
				return
			}
			req.TopK = k
		}
	default:
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	resp, err := h.askService.Ask(ctx, req)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to answer question")
		return
	}

	writeJSON(ctx, w, http.StatusOK, resp)
}
