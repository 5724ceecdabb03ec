package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/regsync/internal/core/domain"
)

var syncFull bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a sync against the upstream database",
	Long: `Runs one sync and waits for it to finish.

By default a single chunk is processed from the stored cursor
position. With --full the whole source is re-walked chunk by chunk
and a fresh CSV snapshot is exported at the end.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "sync the whole source and export a snapshot")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var task *domain.Task
	if syncFull {
		cmd.Println("Running full sync...")
		task, err = a.syncOrch.RunFullSync(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
	} else {
		cmd.Println("Processing one chunk...")
		id, triggerErr := a.syncOrch.TriggerSingleCycle(ctx)
		if triggerErr != nil {
			return fmt.Errorf("sync failed: %w", triggerErr)
		}
		a.syncOrch.Wait()
		task, err = a.syncOrch.TaskStatus(ctx, id)
		if err != nil {
			return fmt.Errorf("reading task status: %w", err)
		}
	}

	printTask(cmd, task)
	if task.Status == domain.TaskError {
		return fmt.Errorf("sync failed: %s", task.Message)
	}
	return nil
}

func printTask(cmd *cobra.Command, task *domain.Task) {
	cmd.Printf("Task:          %s\n", task.ID)
	cmd.Printf("Kind:          %s\n", task.Kind)
	cmd.Printf("Status:        %s\n", task.Status)
	cmd.Printf("Rows received: %d\n", task.RowsReceived)
	cmd.Printf("Rows updated:  %d\n", task.RowsUpdated)
	if task.Message != "" {
		cmd.Printf("Message:       %s\n", task.Message)
	}
	if task.ExportedFile != "" {
		cmd.Printf("Snapshot:      %s\n", task.ExportedFile)
	}
}
