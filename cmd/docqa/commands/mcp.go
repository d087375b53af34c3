package commands

import (
	"fmt"
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"docqa-ai/internal/mcp"
)

// NewMCPCmd creates the mcp command.
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Start the MCP server on stdio.

Exposes the ask_documents, list_documents and reindex_document tools
to MCP clients.

Configure in an MCP client's config file:
  {
    "mcpServers": {
      "docqa": {
        "command": "docqa",
        "args": ["mcp"]
      }
    }
  }`,
		RunE: runMCP,
	}
	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcp.NewServer(a.AskService, a.DocumentService)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	slog.Info("MCP server starting on stdio")
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
		return nil
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
