package driven

import "context"

// SnapshotWriter materialises the full cache as one flat artifact at a
// fixed path, replacing any previous snapshot.
type SnapshotWriter interface {
	// Export overwrites the snapshot with the current cache contents
	// and returns its path. When the cache is empty, any existing
	// snapshot is deleted and Export returns "" with a nil error.
	Export(ctx context.Context) (string, error)
}
