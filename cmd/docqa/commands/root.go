package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docqa-ai/internal/app"
	"docqa-ai/internal/config"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

var (
	verbose bool
	format  string
)

// NewRootCmd creates the docqa root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docqa",
		Short: "Ask questions about a folder of documents",
		Long: `docqa indexes PDF, Markdown and text documents and answers
questions about them, citing the passages each answer is based on.

Configuration is read from the environment and from a .env file
(OPENAI_API_KEY, DOCUMENTS_DIR, VECTOR_BACKEND, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&format, "format", formatText, "Output format: text or json")

	cmd.AddCommand(
		NewAskCmd(),
		NewIndexCmd(),
		NewServeCmd(),
		NewMCPCmd(),
	)

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openApp loads configuration and assembles the application. Logs go to
// stderr so stdout stays clean for command output and the MCP protocol.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	slog.SetDefault(app.NewLogger(cfg, os.Stderr))

	return app.New(ctx, cfg)
}

func validateFormat() error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}
