package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/regsync/internal/adapters/driven/export/csvfile"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a CSV snapshot of the cached records",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	exporter := csvfile.New(a.store.CacheStore(), a.exportDir())
	path, err := exporter.Export(ctx)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if path == "" {
		cmd.Println("Cache is empty; no snapshot written.")
		return nil
	}
	cmd.Printf("Snapshot written to %s\n", path)
	return nil
}
