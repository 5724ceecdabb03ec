package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/regsync/internal/core/ports/driven"
)

// Ensure CursorStore implements the interface.
var _ driven.CursorStore = (*CursorStore)(nil)

// CursorStore is an in-memory implementation of driven.CursorStore.
type CursorStore struct {
	mu       sync.RWMutex
	position string

	// SaveErr, when set, is returned by Save to simulate a persistence
	// failure.
	SaveErr error
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{}
}

// Load returns the stored position, or "" when none has been saved.
func (s *CursorStore) Load(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position, nil
}

// Save replaces the stored position.
func (s *CursorStore) Save(_ context.Context, position string) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
	return nil
}
