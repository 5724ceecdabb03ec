// Package memory provides in-memory implementations of the driven
// storage ports, used for testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore is an in-memory implementation of driven.CacheStore.
type CacheStore struct {
	mu      sync.RWMutex
	records map[string]domain.Record

	// UpsertErr, when set, is returned by UpsertBatch to simulate a
	// cache write failure.
	UpsertErr error
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		records: make(map[string]domain.Record),
	}
}

// UpsertBatch writes records whose hash is new or changed.
func (s *CacheStore) UpsertBatch(_ context.Context, records []domain.Record) (int, error) {
	if s.UpsertErr != nil {
		return 0, s.UpsertErr
	}
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	for _, rec := range records {
		existing, ok := s.records[rec.RegNo]
		if ok && existing.HashValue == rec.HashValue {
			continue
		}
		s.records[rec.RegNo] = rec
		written++
	}
	return written, nil
}

// All returns every record in ascending key order.
func (s *CacheStore) All(_ context.Context) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]domain.Record, 0, len(keys))
	for _, k := range keys {
		records = append(records, s.records[k])
	}
	return records, nil
}

// Count returns the number of cached records.
func (s *CacheStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
