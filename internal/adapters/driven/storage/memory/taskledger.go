package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
)

// Ensure TaskLedger implements the interface.
var _ driven.TaskLedger = (*TaskLedger)(nil)

// TaskLedger is an in-memory implementation of driven.TaskLedger.
// Insertion order is preserved so Latest matches the durable
// implementations.
type TaskLedger struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
	order []string
}

// NewTaskLedger creates a new in-memory task ledger.
func NewTaskLedger() *TaskLedger {
	return &TaskLedger{
		tasks: make(map[string]domain.Task),
	}
}

// Put creates or updates a task record.
func (l *TaskLedger) Put(_ context.Context, task domain.Task) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, ok := l.tasks[task.ID]
	if ok && existing.Terminal() {
		return domain.ErrTaskTerminal
	}
	if !ok {
		l.order = append(l.order, task.ID)
	}
	l.tasks[task.ID] = task
	return nil
}

// Get retrieves a task by id.
func (l *TaskLedger) Get(_ context.Context, id string) (*domain.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	task, ok := l.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &task, nil
}

// Latest returns the most recently inserted task.
func (l *TaskLedger) Latest(_ context.Context) (*domain.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.order) == 0 {
		return nil, domain.ErrNotFound
	}
	task := l.tasks[l.order[len(l.order)-1]]
	return &task, nil
}
