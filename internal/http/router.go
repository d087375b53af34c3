package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docqa-ai/internal/handlers"
	"docqa-ai/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	AskService      service.AskService
	DocumentService service.DocumentService
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.AskService)
	streamHandler := handlers.NewStreamHandler(deps.AskService)
	metricsHandler := handlers.NewMetricsHandler(deps.AskService)
	documentsHandler := handlers.NewDocumentsHandler(deps.DocumentService)
	healthHandler := handlers.NewHealthHandler(deps.DocumentService)

	r.Get("/", handlers.Root)
	r.Method(http.MethodGet, "/health", healthHandler)
	r.Method(http.MethodGet, "/ask", askHandler)
	r.Method(http.MethodPost, "/ask", askHandler)
	r.Method(http.MethodPost, "/ask/stream", streamHandler)
	r.Post("/upload", documentsHandler.Upload)
	r.Post("/reindex/{filename}", documentsHandler.Reindex)
	r.Get("/documents", documentsHandler.List)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	return r
}
