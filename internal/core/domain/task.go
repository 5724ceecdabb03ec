package domain

import "time"

// TaskStatus is the lifecycle state of one triggered run.
type TaskStatus string

const (
	// TaskRunning means the run is in flight.
	TaskRunning TaskStatus = "running"

	// TaskSuccess means a single cycle processed a chunk of rows.
	TaskSuccess TaskStatus = "success"

	// TaskComplete means a full sync ran to exhaustion, or a single
	// cycle found no new rows and wrapped the cursor.
	TaskComplete TaskStatus = "complete"

	// TaskError means the run aborted.
	TaskError TaskStatus = "error"
)

// TaskKind names which sync variant a task ran.
type TaskKind string

const (
	// KindSingleCycle processes exactly one chunk and wraps the cursor
	// on exhaustion.
	KindSingleCycle TaskKind = "single_cycle"

	// KindFullSync loops chunk by chunk until the source is exhausted,
	// then exports a snapshot.
	KindFullSync TaskKind = "full_sync"
)

// Task is the durable record of one triggered run. Created at trigger
// time, mutated only by the owning run, immutable once terminal.
type Task struct {
	// ID is generated per trigger.
	ID string

	// Kind is the sync variant this task ran.
	Kind TaskKind

	// Status is the current lifecycle state.
	Status TaskStatus

	// StartedAt is when the run was triggered.
	StartedAt time.Time

	// EndedAt is when the run reached a terminal status.
	EndedAt time.Time

	// RowsReceived counts rows fetched from the source.
	RowsReceived int

	// RowsUpdated counts rows actually written to the cache.
	RowsUpdated int

	// Message carries a human-readable outcome or error.
	Message string

	// ExportedFile is the snapshot path, empty when no export was
	// written.
	ExportedFile string
}

// Terminal reports whether the task has reached a final status.
func (t *Task) Terminal() bool {
	return t.Status != TaskRunning
}
