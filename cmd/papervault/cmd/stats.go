package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// statsOutput is the JSON shape for the stats command.
type statsOutput struct {
	Documents   int     `json:"documents"`
	Chunks      int     `json:"chunks"`
	Edges       int     `json:"edges"`
	DenseCount  int     `json:"dense_count"`
	SparseCount int     `json:"sparse_count"`
	Dimension   int     `json:"dimension"`
	CacheHits   int     `json:"cache_hits"`
	CacheMisses int     `json:"cache_misses"`
	CacheSize   int     `json:"cache_size"`
	HitRate     float64 `json:"hit_rate"`
}

func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show vault statistics",
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

			storeStats, err := a.store.GetStatistics(cmd.Context())
			if err != nil {
				return err
			}
			engineStats := a.engine.Stats()

			stats := statsOutput{
				Documents:   storeStats.DocumentCount,
				Chunks:      storeStats.ChunkCount,
				Edges:       storeStats.EdgeCount,
				DenseCount:  engineStats.DenseCount,
				Dimension:   a.store.Dimension(),
				CacheHits:   a.cache.Hits(),
				CacheMisses: a.cache.Misses(),
				CacheSize:   a.cache.Len(),
				HitRate:     a.cache.HitRate(),
			}
			if engineStats.SparseStats != nil {
				stats.SparseCount = engineStats.SparseStats.ChunkCount
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			fmt.Fprintf(out, "Documents:     %d\n", stats.Documents)
			fmt.Fprintf(out, "Chunks:        %d\n", stats.Chunks)
			fmt.Fprintf(out, "Similarity edges: %d\n", stats.Edges)
			fmt.Fprintf(out, "Dense vectors: %d (dimension %d)\n", stats.DenseCount, stats.Dimension)
			fmt.Fprintf(out, "Sparse chunks: %d\n", stats.SparseCount)
			fmt.Fprintf(out, "Embedding cache: %d entries, %.1f%% hit rate\n", stats.CacheSize, stats.HitRate*100)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
