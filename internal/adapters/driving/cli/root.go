// Package cli implements the regsync command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/regsync/internal/logger"
)

var (
	version = "dev"

	configDir string
	dataDir   string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "regsync",
	Short: "Registration report sync service",
	Long: `regsync keeps a local cache of registration test reports in step
with the upstream registration database. It extracts rows in ordered
chunks, detects changes by content hash, and maintains a flat CSV
snapshot of the cache.

Source credentials are read from the DB_SERVER, DB_NAME, DB_USER and
DB_PASSWORD environment variables.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Init("regsync", logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.regsync)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.regsync/data)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// Execute runs the CLI. ver is the build version stamped by the
// linker.
func Execute(ver string) error {
	version = ver
	return rootCmd.Execute()
}
