// Package cmd defines the CLI commands for the botc-data-sync executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phauks/botc-data-sync/internal/config"
	"github.com/phauks/botc-data-sync/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "botc-data-sync",
		Short: "Synchronizes the Blood on the Clocktower character catalog",
		Long: `botc-data-sync extracts the official character catalog from the script
tool, enriches it with reminder tokens and flavor text from the wiki, and
publishes versioned snapshots. Runs are incremental: unchanged characters
keep their previously fetched data.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults plus BOTCSYNC_ env vars)")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newPackageCmd())
	cmd.AddCommand(newVerifyCmd())

	return cmd
}

// loadConfigAndLogger is shared setup for all subcommands.
func loadConfigAndLogger() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
