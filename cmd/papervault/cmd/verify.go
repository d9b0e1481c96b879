package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papervault/papervault/internal/output"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check store integrity",
		Long: `Check referential integrity of the store: chunks whose parent
document is missing, chunks without a stored embedding, and embeddings
whose dimension disagrees with the store.`,
		Args: cobra.NoArgs,
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

			report, err := a.store.VerifyIntegrity(cmd.Context())
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if report.OK() {
				out.Success("Store integrity OK.")
				return nil
			}

			for _, id := range report.OrphanedChunks {
				out.Warningf("orphaned chunk: %s", id)
			}
			for _, id := range report.MissingEmbedding {
				out.Warningf("missing embedding: %s", id)
			}
			for _, id := range report.DimensionDrift {
				out.Warningf("dimension drift: %s", id)
			}
			return fmt.Errorf("integrity check failed: %d orphaned chunk(s), %d missing embedding(s), %d drifted embedding(s)",
				len(report.OrphanedChunks), len(report.MissingEmbedding), len(report.DimensionDrift))
		},
	}
	return cmd
}
