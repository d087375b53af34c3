package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"docqa-ai/internal/app"
	"docqa-ai/internal/config"
	"docqa-ai/internal/http"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about a folder of PDF, Markdown and text
// documents, citing the passages each answer is based on.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: DocQA AI API
//   description: |
//     Question answering over indexed documents with cited sources,
//     streaming answers, document upload and query metrics.
//   version: 2.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slog.SetDefault(app.NewLogger(cfg, os.Stdout))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	// Fail fast on a misconfigured embedding model
	if err := a.ValidateEmbedder(ctx); err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}

	router := http.NewRouter(&http.Deps{
		AskService:      a.AskService,
		DocumentService: a.DocumentService,
	})

	// Start indexing in background after router is ready
	go func() {
		if _, err := a.IndexAll(ctx); err != nil {
			slog.Error("Indexing completed with errors", "error", err)
		}
		if err := a.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Document watcher stopped", "error", err)
		}
	}()

	if err := http.Serve(ctx, ":"+cfg.APIPort, router); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
	slog.Info("Shutdown complete")
}
