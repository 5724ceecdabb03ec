package driven

import (
	"context"

	"github.com/custodia-labs/regsync/internal/core/domain"
)

// CacheStore is the authoritative local state: an idempotent keyed
// store of normalised, hashed records.
type CacheStore interface {
	// UpsertBatch writes each record whose stored hash is absent or
	// differs from the record's hash, and skips the rest. The whole
	// batch is applied in one transaction. Returns the number of rows
	// actually written; an empty batch returns 0 with no side effects.
	//
	// Re-upserting an unchanged batch is a no-op, which is what makes
	// crash-retry of a chunk safe.
	UpsertBatch(ctx context.Context, records []domain.Record) (int, error)

	// All returns every cached record in ascending key order.
	All(ctx context.Context) ([]domain.Record, error)

	// Count returns the number of cached records.
	Count(ctx context.Context) (int, error)
}
