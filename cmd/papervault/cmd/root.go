// Package cmd provides the CLI commands for papervault.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papervault/papervault/internal/config"
	"github.com/papervault/papervault/internal/logging"
	"github.com/papervault/papervault/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the papervault CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "papervault",
		Short: "Local document indexing and hybrid retrieval",
		Long: `Papervault indexes research documents into a local store and serves
hybrid search (keyword + embedding) over them.

Everything runs locally: SQLite for metadata, FTS5 or Bleve for keyword
search, and an HNSW graph for embedding similarity.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("papervault version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: XDG user config)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDocumentsCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig(cfg.LogDir())
	logCfg.Level = cfg.Logging.Level
	logCfg.WriteToStderr = false
	if debugMode {
		logCfg.Level = "debug"
	}

	cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

// loadConfig loads the effective configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
