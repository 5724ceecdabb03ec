package driven

import "context"

// SourceRefresher rebuilds the remote source view ahead of a scheduled
// full sync, so the sync reads freshly materialised data rather than
// whatever the view held at its last rebuild.
type SourceRefresher interface {
	// Refresh executes the source-side refresh procedure. A non-nil
	// error means the view may be stale and the caller must skip the
	// sync rather than ingest it.
	Refresh(ctx context.Context) error
}
