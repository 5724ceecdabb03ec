package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// GetJob retrieves a scheduled job by ID.
// Returns nil and no error if the job does not exist.
func (s *schedulerStore) GetJob(ctx context.Context, jobID string) (*domain.ScheduledJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled
		FROM scheduled_jobs WHERE id = ?
	`, jobID)

	job, err := scanScheduledJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil // Per interface: return nil and no error if not found
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns all scheduled jobs.
func (s *schedulerStore) ListJobs(ctx context.Context) ([]domain.ScheduledJob, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled
		FROM scheduled_jobs
	`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.ScheduledJob //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanScheduledJobRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled jobs: %w", err)
	}

	return jobs, nil
}

// SaveJob persists a job's state.
// Creates or updates the job based on ID.
func (s *schedulerStore) SaveJob(ctx context.Context, job *domain.ScheduledJob) error {
	if job == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			enabled = excluded.enabled
	`, job.ID, job.Name, int64(job.Interval.Seconds()),
		formatNullableTime(job.LastRun), formatNullableTime(job.NextRun),
		nullString(job.LastError), formatNullableTime(job.LastSuccess),
		boolToInt(job.Enabled))

	if err != nil {
		return fmt.Errorf("saving scheduled job: %w", err)
	}
	return nil
}

// DeleteJob removes a job from storage.
func (s *schedulerStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM scheduled_jobs WHERE id = ?", jobID)
	if err != nil {
		return fmt.Errorf("deleting scheduled job: %w", err)
	}
	return nil
}

// RecordResult logs a job execution result.
func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.JobResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO job_results (job_id, started_at, ended_at, success, error, items_processed)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.JobID,
		result.StartedAt.Format(time.RFC3339),
		result.EndedAt.Format(time.RFC3339),
		boolToInt(result.Success),
		nullString(result.Error),
		result.ItemsProcessed)

	if err != nil {
		return fmt.Errorf("recording job result: %w", err)
	}
	return nil
}

// GetJobHistory returns recent results for a job.
// Results are ordered by start time descending (most recent first).
func (s *schedulerStore) GetJobHistory(ctx context.Context, jobID string, limit int) ([]domain.JobResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT job_id, started_at, ended_at, success, error, items_processed
		FROM job_results
		WHERE job_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying job history: %w", err)
	}
	defer rows.Close()

	var results []domain.JobResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		result, err := scanJobResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job history: %w", err)
	}

	return results, nil
}

// PruneHistory removes old job results beyond the retention limit.
// Keeps the most recent 'keep' results per job.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	// Delete all results except the most recent 'keep' per job
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM job_results
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY job_id ORDER BY started_at DESC) as rn
				FROM job_results
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning job history: %w", err)
	}
	return nil
}

// scanScheduledJob scans a single scheduled job row.
func scanScheduledJob(row *sql.Row) (*domain.ScheduledJob, error) {
	var job domain.ScheduledJob
	var intervalSeconds int64
	var lastRun, nextRun, lastError, lastSuccess sql.NullString
	var enabled int

	if err := row.Scan(&job.ID, &job.Name, &intervalSeconds,
		&lastRun, &nextRun, &lastError, &lastSuccess, &enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning scheduled job: %w", err)
	}

	job.Interval = time.Duration(intervalSeconds) * time.Second
	job.LastRun = parseNullableTime(lastRun)
	job.NextRun = parseNullableTime(nextRun)
	if lastError.Valid {
		job.LastError = lastError.String
	}
	job.LastSuccess = parseNullableTime(lastSuccess)
	job.Enabled = enabled == 1

	return &job, nil
}

// scanScheduledJobRows scans a scheduled job from *sql.Rows.
func scanScheduledJobRows(rows *sql.Rows) (*domain.ScheduledJob, error) {
	var job domain.ScheduledJob
	var intervalSeconds int64
	var lastRun, nextRun, lastError, lastSuccess sql.NullString
	var enabled int

	if err := rows.Scan(&job.ID, &job.Name, &intervalSeconds,
		&lastRun, &nextRun, &lastError, &lastSuccess, &enabled); err != nil {
		return nil, fmt.Errorf("scanning scheduled job: %w", err)
	}

	job.Interval = time.Duration(intervalSeconds) * time.Second
	job.LastRun = parseNullableTime(lastRun)
	job.NextRun = parseNullableTime(nextRun)
	if lastError.Valid {
		job.LastError = lastError.String
	}
	job.LastSuccess = parseNullableTime(lastSuccess)
	job.Enabled = enabled == 1

	return &job, nil
}

// scanJobResult scans a job result from *sql.Rows.
func scanJobResult(rows *sql.Rows) (*domain.JobResult, error) {
	var result domain.JobResult
	var startedAt, endedAt string
	var success int
	var errMsg sql.NullString

	if err := rows.Scan(&result.JobID, &startedAt, &endedAt,
		&success, &errMsg, &result.ItemsProcessed); err != nil {
		return nil, fmt.Errorf("scanning job result: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		result.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339, endedAt); err == nil {
		result.EndedAt = t
	}
	result.Success = success == 1
	if errMsg.Valid {
		result.Error = errMsg.String
	}

	return &result, nil
}
