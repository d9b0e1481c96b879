package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Manage indexed documents",
	}

	cmd.AddCommand(newDocumentsListCmd())
	cmd.AddCommand(newDocumentsShowCmd())
	cmd.AddCommand(newDocumentsDeleteCmd())
	cmd.AddCommand(newDocumentsSimilarCmd())

	return cmd
}

func newDocumentsListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all indexed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cfg, false)
			if err != nil {
				return err
			}
			defer a.close()

			docs, err := a.store.GetAllDocuments(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}

			if len(docs) == 0 {
				fmt.Fprintln(out, "No documents indexed.")
				return nil
			}
			for _, d := range docs {
				fmt.Fprintf(out, "%s  %s", d.ID, d.Title)
				if d.Author != "" {
					fmt.Fprintf(out, " (%s", d.Author)
					if d.Year != 0 {
						fmt.Fprintf(out, ", %d", d.Year)
					}
					fmt.Fprint(out, ")")
				} else if d.Year != 0 {
					fmt.Fprintf(out, " (%d)", d.Year)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func newDocumentsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <document-id>",
		Short: "Show one document's metadata and chunk count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cfg, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			doc, err := a.store.GetDocument(ctx, args[0])
			if err != nil {
				return err
			}
			chunks, err := a.store.GetChunksForDocument(ctx, doc.ID)
			if err != nil {
				return err
			}
			if err := a.store.TouchDocument(ctx, doc.ID, time.Now()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", doc.ID)
			fmt.Fprintf(out, "Title:    %s\n", doc.Title)
			if doc.Author != "" {
				fmt.Fprintf(out, "Author:   %s\n", doc.Author)
			}
			if doc.Year != 0 {
				fmt.Fprintf(out, "Year:     %d\n", doc.Year)
			}
			fmt.Fprintf(out, "Pages:    %d\n", doc.PageCount)
			fmt.Fprintf(out, "Chunks:   %d\n", len(chunks))
			fmt.Fprintf(out, "Indexed:  %s\n", doc.IndexedAt.Format(time.RFC3339))
			for k, v := range doc.Metadata {
				fmt.Fprintf(out, "  %s: %s\n", k, v)
			}
			return nil
		},
	}
	return cmd
}

func newDocumentsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document and everything derived from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cfg, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.pipeline.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := a.save(); err != nil {
				return fmt.Errorf("saving dense index: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func newDocumentsSimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <document-id>",
		Short: "List documents similar to the given one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cfg, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			edges, err := a.store.GetSimilarDocuments(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(edges) == 0 {
				fmt.Fprintln(out, "No similar documents.")
				return nil
			}
			for _, e := range edges {
				other := e.TargetDocumentID
				if other == args[0] {
					other = e.SourceDocumentID
				}
				title := other
				if doc, err := a.store.GetDocument(ctx, other); err == nil {
					title = fmt.Sprintf("%s  %s", other, doc.Title)
				}
				fmt.Fprintf(out, "[%.3f] %s\n", e.Score, title)
			}
			return nil
		},
	}
	return cmd
}
