package driving

import (
	"context"

	"github.com/custodia-labs/regsync/internal/core/domain"
)

// SyncService triggers sync runs and exposes their recorded status.
//
// Triggers are asynchronous: the caller receives a task id immediately
// and polls the ledger for completion. At most one run is active at a
// time; overlapping triggers fail with ErrSyncInProgress.
type SyncService interface {
	// TriggerSingleCycle starts the one-chunk variant in the
	// background. On an exhausted source it wraps the cursor back to
	// the start sentinel instead of completing.
	TriggerSingleCycle(ctx context.Context) (string, error)

	// TriggerFullSync starts the loop-to-exhaustion variant in the
	// background, ending with a snapshot export.
	TriggerFullSync(ctx context.Context) (string, error)

	// RunFullSync executes a full sync synchronously and returns the
	// terminal task record. Used by the scheduler.
	RunFullSync(ctx context.Context) (*domain.Task, error)

	// Cancel requests cooperative cancellation of the in-flight run,
	// honoured between chunks. No-op when nothing is running.
	Cancel()

	// Running reports whether a run is currently in flight.
	Running() bool

	// LatestStatus returns the most recently triggered task.
	// Returns ErrNotFound if no task has ever run.
	LatestStatus(ctx context.Context) (*domain.Task, error)

	// TaskStatus returns the task with the given id.
	TaskStatus(ctx context.Context, id string) (*domain.Task, error)
}
