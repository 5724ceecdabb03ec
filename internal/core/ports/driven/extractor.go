package driven

import (
	"context"

	"github.com/custodia-labs/regsync/internal/core/domain"
)

// ChunkExtractor pulls one bounded, ordered batch of raw rows from the
// remote source.
type ChunkExtractor interface {
	// Fetch returns at most limit rows whose key is strictly greater
	// than cursor, in ascending key order. Repeated calls with the same
	// cursor and no intervening source writes return the same rows.
	//
	// An empty slice with a nil error means the source is exhausted.
	// A non-nil error is a hard failure: the caller must abort the run
	// without advancing the cursor so a retry resumes from the same
	// point.
	Fetch(ctx context.Context, cursor string, limit int) ([]domain.SourceRow, error)
}
