package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papervault/papervault/internal/chunk"
	"github.com/papervault/papervault/internal/index"
	"github.com/papervault/papervault/internal/output"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	title  string
	author string
	year   int
	id     string
	format string // "text", "json"
}

// documentFile is the JSON input format: metadata plus extracted pages.
type documentFile struct {
	Title  string   `json:"title"`
	Author string   `json:"author"`
	Year   int      `json:"year"`
	Pages  []string `json:"pages"`
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Index a document into the vault",
		Long: `Index a document into the vault.

Plain text input is split into pages on form-feed characters; a file
without form feeds is treated as a single page. JSON input carries
metadata and a pages array:

  {"title": "...", "author": "...", "year": 2021, "pages": ["...", "..."]}

Re-indexing an existing document ID replaces it completely.

Examples:
  papervault index paper.txt --title "Attention Is All You Need"
  papervault index paper.json
  papervault index updated.txt --id 1b4f... # replace an existing document`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "Document title (defaults to the file name)")
	cmd.Flags().StringVar(&opts.author, "author", "", "Document author")
	cmd.Flags().IntVar(&opts.year, "year", 0, "Publication year")
	cmd.Flags().StringVar(&opts.id, "id", "", "Document ID (replaces an existing document)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Input format: text, json (default: by extension)")

	return cmd
}

func runIndex(cmd *cobra.Command, path string, opts indexOptions) error {
	input, err := readDocument(path, opts)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.pipeline.IndexDocument(cmd.Context(), input)
	if err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return fmt.Errorf("saving dense index: %w", err)
	}

	out := output.New(cmd.OutOrStdout())
	out.Successf("Indexed %s", input.Title)
	out.Detail("document: %s", report.DocumentID)
	if report.ChunksRejected > 0 || report.ChunksDeduped > 0 {
		out.Detail("chunks:   %d (%d rejected, %d deduplicated)",
			report.ChunksCreated, report.ChunksRejected, report.ChunksDeduped)
	} else {
		out.Detail("chunks:   %d", report.ChunksCreated)
	}
	if report.SimilarDocs > 0 {
		out.Detail("similar:  %d related document(s)", report.SimilarDocs)
	}
	out.Detail("took:     %s", report.Duration.Round(timeRounding))
	return nil
}

// readDocument parses the input file into a DocumentInput.
func readDocument(path string, opts indexOptions) (index.DocumentInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return index.DocumentInput{}, fmt.Errorf("reading %s: %w", path, err)
	}

	format := opts.format
	if format == "" {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			format = "json"
		} else {
			format = "text"
		}
	}

	input := index.DocumentInput{
		ID:     opts.id,
		Title:  opts.title,
		Author: opts.author,
		Year:   opts.year,
	}

	switch format {
	case "json":
		var doc documentFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return index.DocumentInput{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		if input.Title == "" {
			input.Title = doc.Title
		}
		if input.Author == "" {
			input.Author = doc.Author
		}
		if input.Year == 0 {
			input.Year = doc.Year
		}
		for i, text := range doc.Pages {
			input.Pages = append(input.Pages, chunk.PageText{PageNumber: i + 1, Text: text})
		}

	case "text":
		for i, text := range strings.Split(string(data), "\f") {
			input.Pages = append(input.Pages, chunk.PageText{PageNumber: i + 1, Text: text})
		}

	default:
		return index.DocumentInput{}, fmt.Errorf("unknown input format %q (use text or json)", format)
	}

	if input.Title == "" {
		input.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return input, nil
}
