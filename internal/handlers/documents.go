package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/service"
)

// maxUploadSize bounds the multipart form kept in memory.
const maxUploadSize = 32 << 20

// DocumentsHandler handles the documents folder endpoints.
type DocumentsHandler struct {
	documentService service.DocumentService
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(documentService service.DocumentService) *DocumentsHandler {
	return &DocumentsHandler{
		documentService: documentService,
	}
}

// List handles GET /documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.documentService.List(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list documents")
		return
	}
	writeJSON(ctx, w, http.StatusOK, list)
}

// Upload handles POST /upload with a multipart "file" field.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "missing file in upload", "error", err)
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	outcome, err := h.documentService.Upload(ctx, header.Filename, file)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process document")
		return
	}
	writeJSON(ctx, w, http.StatusOK, outcome)
}

// Reindex handles POST /reindex/{filename}.
func (h *DocumentsHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	outcome, err := h.documentService.Reindex(ctx, chi.URLParam(r, "filename"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to reindex document")
		return
	}
	writeJSON(ctx, w, http.StatusOK, outcome)
}
