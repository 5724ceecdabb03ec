package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
)

// cacheStore implements driven.CacheStore.
type cacheStore struct {
	store *Store
}

var _ driven.CacheStore = (*cacheStore)(nil)

// UpsertBatch writes each record whose stored hash is absent or
// changed, inside a single transaction. Unchanged records are skipped,
// which keeps chunk re-processing a no-op.
func (s *cacheStore) UpsertBatch(ctx context.Context, records []domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	written := 0
	for _, rec := range records {
		var stored int64
		err := tx.QueryRowContext(ctx,
			"SELECT hash_value FROM cache_records WHERE reg_no = ?", rec.RegNo,
		).Scan(&stored)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			// New key, fall through to write
		case err != nil:
			return 0, fmt.Errorf("looking up hash for %s: %w", rec.RegNo, err)
		case uint32(stored) == rec.HashValue:
			continue // Unchanged, skip
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cache_records (
				reg_no, reg_date, report_release_date, released, test_end_date,
				invoicing_type, test_report_stage, invoice_date, buyer,
				invoice_no, modifieddt, hash_value
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(reg_no) DO UPDATE SET
				reg_date = excluded.reg_date,
				report_release_date = excluded.report_release_date,
				released = excluded.released,
				test_end_date = excluded.test_end_date,
				invoicing_type = excluded.invoicing_type,
				test_report_stage = excluded.test_report_stage,
				invoice_date = excluded.invoice_date,
				buyer = excluded.buyer,
				invoice_no = excluded.invoice_no,
				modifieddt = excluded.modifieddt,
				hash_value = excluded.hash_value
		`, rec.RegNo, rec.RegDate, rec.ReportReleaseDate, rec.Released,
			rec.TestEndDate, rec.InvoicingType, rec.TestReportStage,
			rec.InvoiceDate, rec.Buyer, rec.InvoiceNo, rec.ModifiedAt,
			int64(rec.HashValue)); err != nil {
			return 0, fmt.Errorf("upserting %s: %w", rec.RegNo, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing upsert batch: %w", err)
	}
	return written, nil
}

// All returns every cached record in ascending key order.
func (s *cacheStore) All(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT reg_no, reg_date, report_release_date, released, test_end_date,
			invoicing_type, test_report_stage, invoice_date, buyer,
			invoice_no, modifieddt, hash_value
		FROM cache_records ORDER BY reg_no ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying cache records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cache records: %w", err)
	}
	return records, nil
}

// Count returns the number of cached records.
func (s *cacheStore) Count(ctx context.Context) (int, error) {
	var count int
	row := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_records")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting cache records: %w", err)
	}
	return count, nil
}

// scanRecord scans a cache record from *sql.Rows.
func scanRecord(rows *sql.Rows) (*domain.Record, error) {
	var rec domain.Record
	var hash int64

	if err := rows.Scan(&rec.RegNo, &rec.RegDate, &rec.ReportReleaseDate,
		&rec.Released, &rec.TestEndDate, &rec.InvoicingType,
		&rec.TestReportStage, &rec.InvoiceDate, &rec.Buyer,
		&rec.InvoiceNo, &rec.ModifiedAt, &hash); err != nil {
		return nil, fmt.Errorf("scanning cache record: %w", err)
	}
	rec.HashValue = uint32(hash)
	return &rec, nil
}
