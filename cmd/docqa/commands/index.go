package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"docqa-ai/internal/indexer"
)

// NewIndexCmd creates the index command.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [file...]",
		Short: "Index the documents folder",
		Long: `Index the documents folder.

Without arguments every supported file in DOCUMENTS_DIR is indexed and
unchanged files are skipped. Named files are always re-indexed.

Examples:
  docqa index
  docqa index guia.pdf temario.md`,
		RunE: runIndex,
	}
	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		stats, err := a.IndexAll(ctx)
		if err != nil {
			return err
		}
		return printStats(cmd.OutOrStdout(), stats)
	}

	for _, name := range args {
		outcome, err := a.DocumentService.Reindex(ctx, filepath.Base(name))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d fragmentos)\n", outcome.Message, outcome.Chunks)
	}
	return nil
}

func printStats(w io.Writer, stats *indexer.IndexStats) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(w, "Documentos procesados: %d\n", stats.DocsProcessed)
	fmt.Fprintf(w, "Documentos sin cambios: %d\n", stats.DocsSkipped)
	fmt.Fprintf(w, "Documentos con error: %d\n", stats.DocsFailed)
	fmt.Fprintf(w, "Fragmentos indexados: %d\n", stats.ChunksEmbedded)
	fmt.Fprintf(w, "Versión del índice: %s\n", stats.IndexVersion)
	return nil
}
