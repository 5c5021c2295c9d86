// Package cmd provides the CLI commands for GrantSight.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/grantsight/grantsight/internal/config"
	"github.com/grantsight/grantsight/internal/logging"
	"github.com/grantsight/grantsight/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the grantsight CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grantsight",
		Short: "Hybrid search service for grant awards",
		Long: `GrantSight provides hybrid (lexical + semantic) search over a
government grant-award corpus stored in Postgres, with pgvector for
nearest-neighbor search and a batch indexing pipeline.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("grantsight version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	// Commands load config again themselves; logging only needs the
	// logging section and must work even when config loading fails later.
	logCfg := logging.DefaultConfig()
	if cfg, err := config.Load(configPath); err == nil {
		logCfg.Level = cfg.Logging.Level
		logCfg.Format = cfg.Logging.Format
		logCfg.FilePath = cfg.Logging.File
	}
	if debugMode {
		logCfg.Level = "debug"
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup

	slog.Debug("logging ready", slog.String("level", logCfg.Level))
	return nil
}

// loadConfig loads and validates the configuration for a command run.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
