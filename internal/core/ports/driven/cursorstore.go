package driven

import "context"

// CursorStore persists the extraction position.
//
// The position is the last-seen natural key ("last reg_no"). It is
// persisted only after the corresponding chunk has been committed to
// the cache, so a crash mid-chunk re-fetches that chunk rather than
// skipping it.
type CursorStore interface {
	// Load returns the stored position. A missing or unreadable
	// position yields the start-of-data sentinel ("") with a nil
	// error rather than failing the caller.
	Load(ctx context.Context) (string, error)

	// Save durably replaces the position. A concurrent Load never
	// observes a partially written value.
	Save(ctx context.Context, position string) error
}
