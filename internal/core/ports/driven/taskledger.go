package driven

import (
	"context"

	"github.com/custodia-labs/regsync/internal/core/domain"
)

// TaskLedger is the durable map of run id to latest status.
//
// Implementations must serialise the read-modify-write cycle so
// concurrent completions never lose updates.
type TaskLedger interface {
	// Put creates or updates the task record. Updating a task whose
	// stored status is already terminal returns ErrTaskTerminal.
	Put(ctx context.Context, task domain.Task) error

	// Get retrieves a task by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Task, error)

	// Latest returns the most recently inserted task, by insertion
	// order, not last-modified. Returns ErrNotFound when the ledger
	// is empty.
	Latest(ctx context.Context) (*domain.Task, error)
}
