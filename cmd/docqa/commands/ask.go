package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"docqa-ai/internal/rag"
)

var (
	askTopK      int
	askSources   []string
	askNamespace string
)

// NewAskCmd creates the ask command.
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Long: `Answer a question from the indexed documents.

Examples:
  docqa ask "¿Cómo se evalúa la asignatura?"
  docqa ask --top-k 10 --source guia.pdf "¿Qué competencias se trabajan?"
  docqa ask --format json "¿Qué documentos hablan de la LOMLOE?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "Number of passages to retrieve (default from DEFAULT_TOP_K)")
	cmd.Flags().StringSliceVar(&askSources, "source", nil, "Only use these documents (repeatable)")
	cmd.Flags().StringVar(&askNamespace, "namespace", "", "Restrict retrieval to one namespace")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	resp, err := a.AskService.Ask(ctx, buildAskRequest(strings.Join(args, " ")))
	if err != nil {
		return err
	}

	return printAnswer(cmd.OutOrStdout(), resp)
}

func buildAskRequest(q string) rag.AskRequest {
	req := rag.AskRequest{
		Query:     q,
		TopK:      askTopK,
		Namespace: askNamespace,
	}
	switch len(askSources) {
	case 0:
	case 1:
		req.Filters = map[string]any{rag.MetaSource: askSources[0]}
	default:
		sources := make([]any, len(askSources))
		for i, s := range askSources {
			sources[i] = s
		}
		req.Filters = map[string]any{rag.MetaSource: sources}
	}
	return req
}

func printAnswer(w io.Writer, resp rag.AskResponse) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(w, resp.Answer.Answer)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Confianza: %s (%d fragmentos, %.2fs)\n", resp.Confidence, resp.ChunksRetrieved, resp.ResponseTime)
	if len(resp.Sources) == 0 {
		return nil
	}
	fmt.Fprintln(w, "Fuentes:")
	for i, src := range resp.Sources {
		fmt.Fprintf(w, "  %d. %s", i+1, src.Source)
		if src.Page != nil {
			fmt.Fprintf(w, ", p. %d", *src.Page)
		}
		if src.Section != "" {
			fmt.Fprintf(w, " (%s)", src.Section)
		}
		fmt.Fprintf(w, " [%.2f]\n", src.RelevanceScore)
		fmt.Fprintf(w, "     %s\n", src.Text)
	}
	return nil
}
