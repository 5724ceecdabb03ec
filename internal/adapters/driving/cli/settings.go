package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/regsync/internal/core/domain"
)

var (
	setInterval  int
	setChunkSize int
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	RunE:  runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings",
	Long: `Changes one or more settings and persists them to the config
file. A running serve process picks the change up live.`,
	RunE: runSettingsSet,
}

func init() {
	settingsSetCmd.Flags().IntVar(&setInterval, "interval", 0, "scheduler interval in minutes")
	settingsSetCmd.Flags().IntVar(&setChunkSize, "chunk-size", 0, "rows per extraction chunk")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	settings, err := a.settings.Get()
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}

	printSettings(cmd, settings)
	cmd.Printf("\nConfig file: %s\n", a.config.Path())
	return nil
}

func runSettingsSet(cmd *cobra.Command, _ []string) error {
	if setInterval == 0 && setChunkSize == 0 {
		return fmt.Errorf("nothing to change: %w", domain.ErrInvalidInput)
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	settings, err := a.settings.Get()
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}

	if setInterval != 0 {
		settings.Scheduler.IntervalMinutes = setInterval
	}
	if setChunkSize != 0 {
		settings.ETL.ChunkSize = setChunkSize
	}

	if err := a.settings.Update(settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	printSettings(cmd, settings)
	return nil
}

func printSettings(cmd *cobra.Command, settings domain.Settings) {
	cmd.Println("[scheduler]")
	cmd.Printf("interval_minutes = %d\n", settings.Scheduler.IntervalMinutes)
	cmd.Println()
	cmd.Println("[etl]")
	cmd.Printf("chunk_size = %d\n", settings.ETL.ChunkSize)
}
