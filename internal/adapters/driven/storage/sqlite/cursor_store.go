package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/regsync/internal/core/ports/driven"
	"github.com/custodia-labs/regsync/internal/logger"
)

// cursorStore implements driven.CursorStore.
//
// The position lives in a single keyed row, so Save is an atomic
// upsert and a concurrent Load never sees a torn value.
type cursorStore struct {
	store *Store
}

var _ driven.CursorStore = (*cursorStore)(nil)

// Load returns the stored position. Per the port contract a missing or
// unreadable position degrades to the start-of-data sentinel instead
// of failing the caller.
func (s *cursorStore) Load(ctx context.Context) (string, error) {
	var position string
	row := s.store.db.QueryRowContext(ctx,
		"SELECT position FROM sync_cursor WHERE id = 1")
	if err := row.Scan(&position); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Warn("cursor unreadable, restarting from beginning: %v", err)
		}
		return "", nil
	}
	return position, nil
}

// Save durably replaces the position.
func (s *cursorStore) Save(ctx context.Context, position string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_cursor (id, position, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			updated_at = excluded.updated_at
	`, position, time.Now().UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("saving cursor: %w", err)
	}
	return nil
}
