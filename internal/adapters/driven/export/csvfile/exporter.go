// Package csvfile implements the SnapshotWriter port as a single
// fixed-path CSV file, fully replaced on every export.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
	"github.com/custodia-labs/regsync/internal/logger"
)

// DefaultFilename is the snapshot name inside the export directory.
const DefaultFilename = "registrations.csv"

// header lists the snapshot columns, in cache order.
var header = []string{
	domain.FieldRegNo,
	domain.FieldRegDate,
	domain.FieldReportReleaseDate,
	domain.FieldReleased,
	domain.FieldTestEndDate,
	domain.FieldInvoicingType,
	domain.FieldTestReportStage,
	domain.FieldInvoiceDate,
	domain.FieldBuyer,
	domain.FieldInvoiceNo,
	domain.FieldModifiedAt,
	"hash_value",
}

// Ensure Exporter implements the interface.
var _ driven.SnapshotWriter = (*Exporter)(nil)

// Exporter writes the full cache to one CSV snapshot.
type Exporter struct {
	cache driven.CacheStore
	path  string
}

// New creates an exporter that snapshots cache into dir. If dir is
// empty, defaults to ./exports.
func New(cache driven.CacheStore, dir string) *Exporter {
	if dir == "" {
		dir = "exports"
	}
	return &Exporter{
		cache: cache,
		path:  filepath.Join(dir, DefaultFilename),
	}
}

// Path returns the fixed snapshot path.
func (e *Exporter) Path() string {
	return e.path
}

// Export replaces the snapshot with the current cache contents. An
// empty cache deletes any stale snapshot and returns "" with no error.
// The file is written to a temp path and renamed, so readers never see
// a partial snapshot.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	records, err := e.cache.All(ctx)
	if err != nil {
		return "", fmt.Errorf("reading cache for export: %w", err)
	}

	if len(records) == 0 {
		logger.Warn("cache is empty, nothing to export")
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("removing stale snapshot: %w", err)
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(e.path), 0755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(e.path), ".snapshot-*.csv")
	if err != nil {
		return "", fmt.Errorf("creating snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing snapshot header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.RegNo, rec.RegDate, rec.ReportReleaseDate, rec.Released,
			rec.TestEndDate, rec.InvoicingType, rec.TestReportStage,
			rec.InvoiceDate, rec.Buyer, rec.InvoiceNo, rec.ModifiedAt,
			strconv.FormatUint(uint64(rec.HashValue), 10),
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return "", fmt.Errorf("writing snapshot row %s: %w", rec.RegNo, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flushing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing snapshot temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), e.path); err != nil {
		return "", fmt.Errorf("replacing snapshot: %w", err)
	}

	logger.Info("exported %d rows to %s", len(records), e.path)
	return e.path, nil
}
