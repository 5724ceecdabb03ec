package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/regsync/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest sync task and cache size",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	count, err := a.store.CacheStore().Count(ctx)
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}
	cmd.Printf("Cached records: %d\n", count)

	cursor, err := a.store.CursorStore().Load(ctx)
	if err == nil {
		if cursor == "" {
			cursor = "(start)"
		}
		cmd.Printf("Cursor:         %s\n", cursor)
	}

	task, err := a.syncOrch.LatestStatus(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			cmd.Println("No sync has run yet.")
			return nil
		}
		return fmt.Errorf("reading task ledger: %w", err)
	}

	cmd.Println()
	printTask(cmd, task)
	return nil
}
