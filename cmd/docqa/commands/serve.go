package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"docqa-ai/internal/http"
)

var servePort string

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

The documents folder is indexed in the background and, when
WATCH_DOCUMENTS is true, re-indexed as files change.

Examples:
  docqa serve
  docqa serve --port 9000`,
		RunE: runServe,
	}

	cmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (default from API_PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ValidateEmbedder(ctx); err != nil {
		return err
	}

	go func() {
		if _, err := a.IndexAll(ctx); err != nil {
			slog.Error("Indexing completed with errors", "error", err)
		}
		if err := a.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Document watcher stopped", "error", err)
		}
	}()

	port := a.Config.APIPort
	if servePort != "" {
		port = servePort
	}

	router := http.NewRouter(&http.Deps{
		AskService:      a.AskService,
		DocumentService: a.DocumentService,
	})
	return http.Serve(ctx, ":"+port, router)
}
