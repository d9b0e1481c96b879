package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papervault/papervault/internal/search"
)

// timeRounding is the display precision for durations.
const timeRounding = time.Millisecond

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit      int
	documentID string
	format     string // "text", "json"
	denseOnly  bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed documents",
		Long: `Search indexed documents with hybrid retrieval.

Keyword and embedding searches run in parallel and are fused with
Reciprocal Rank Fusion. Chunks containing literal query keywords are
boosted.

Examples:
  papervault search "transformer attention mechanism"
  papervault search "ablation study" --document 1b4f... --limit 5
  papervault search "residual connections" --format json
  papervault search "gradient flow" --dense-only`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.documentID, "document", "d", "", "Restrict results to one document")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.denseOnly, "dense-only", false, "Use embedding similarity only (skip keyword search)")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	start := time.Now()
	results, err := a.engine.Search(cmd.Context(), query, search.SearchOptions{
		Limit:      opts.limit,
		DocumentID: opts.documentID,
		DenseOnly:  opts.denseOnly,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "No results for %q\n", query)
		return nil
	}

	fmt.Fprintf(out, "%d result(s) in %s\n\n", len(results), elapsed.Round(timeRounding))
	for i, r := range results {
		fmt.Fprintf(out, "%d. [%.4f] %s (page %d)\n", i+1, r.Score, r.Chunk.DocumentID, r.Chunk.PageNumber)
		if len(r.MatchedTerms) > 0 {
			fmt.Fprintf(out, "   matched: %s\n", strings.Join(r.MatchedTerms, ", "))
		}
		fmt.Fprintf(out, "   %s\n\n", excerpt(r.Chunk.Content, 200))
	}
	return nil
}

// excerpt truncates content for display at a word boundary.
func excerpt(content string, max int) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= max {
		return content
	}
	cut := strings.LastIndex(content[:max], " ")
	if cut <= 0 {
		cut = max
	}
	return content[:cut] + "..."
}
