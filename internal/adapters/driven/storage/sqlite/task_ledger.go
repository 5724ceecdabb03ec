package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
	"github.com/custodia-labs/regsync/internal/logger"
)

// taskLedger implements driven.TaskLedger.
//
// The read-modify-write in Put runs inside one transaction so
// concurrent completions cannot lose updates.
type taskLedger struct {
	store *Store
}

var _ driven.TaskLedger = (*taskLedger)(nil)

// Put creates or updates a task record. A task whose stored status is
// terminal is immutable.
func (l *taskLedger) Put(ctx context.Context, task domain.Task) error {
	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ledger transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var status string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM tasks WHERE id = ?", task.ID).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// New task
	case err != nil:
		return fmt.Errorf("looking up task %s: %w", task.ID, err)
	case domain.TaskStatus(status) != domain.TaskRunning:
		return fmt.Errorf("task %s: %w", task.ID, domain.ErrTaskTerminal)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (id, kind, status, started_at, ended_at,
			rows_received, rows_updated, message, exported_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			ended_at = excluded.ended_at,
			rows_received = excluded.rows_received,
			rows_updated = excluded.rows_updated,
			message = excluded.message,
			exported_file = excluded.exported_file
	`, task.ID, string(task.Kind), string(task.Status),
		task.StartedAt.UTC().Format(time.RFC3339),
		formatNullableTime(task.EndedAt),
		task.RowsReceived, task.RowsUpdated,
		nullString(task.Message), nullString(task.ExportedFile)); err != nil {
		return fmt.Errorf("saving task %s: %w", task.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger write: %w", err)
	}
	return nil
}

// Get retrieves a task by id.
func (l *taskLedger) Get(ctx context.Context, id string) (*domain.Task, error) {
	row := l.store.db.QueryRowContext(ctx, `
		SELECT id, kind, status, started_at, ended_at,
			rows_received, rows_updated, message, exported_file
		FROM tasks WHERE id = ?
	`, id)
	return scanTask(row)
}

// Latest returns the last-inserted task, by ledger sequence.
func (l *taskLedger) Latest(ctx context.Context) (*domain.Task, error) {
	row := l.store.db.QueryRowContext(ctx, `
		SELECT id, kind, status, started_at, ended_at,
			rows_received, rows_updated, message, exported_file
		FROM tasks ORDER BY seq DESC LIMIT 1
	`)
	return scanTask(row)
}

// scanTask scans a single task row.
func scanTask(row *sql.Row) (*domain.Task, error) {
	var task domain.Task
	var kind, status, startedAt string
	var endedAt, message, exportedFile sql.NullString

	if err := row.Scan(&task.ID, &kind, &status, &startedAt, &endedAt,
		&task.RowsReceived, &task.RowsUpdated, &message, &exportedFile); err != nil {
		// An unreadable row degrades to "not found", the same way the
		// cursor degrades to the start sentinel: the ledger is a local
		// convenience, not something worth failing a status call over.
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Warn("task ledger unreadable, treating as empty: %v", err)
		}
		return nil, domain.ErrNotFound
	}

	task.Kind = domain.TaskKind(kind)
	task.Status = domain.TaskStatus(status)
	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		task.StartedAt = t
	}
	task.EndedAt = parseNullableTime(endedAt)
	if message.Valid {
		task.Message = message.String
	}
	if exportedFile.Valid {
		task.ExportedFile = exportedFile.String
	}
	return &task, nil
}
