package driven

import (
	"context"

	"github.com/custodia-labs/regsync/internal/core/domain"
)

// SchedulerStore persists scheduler state for crash recovery.
// It stores job state and execution history.
type SchedulerStore interface {
	// GetJob retrieves a scheduled job by ID.
	// Returns nil and no error if the job does not exist.
	GetJob(ctx context.Context, jobID string) (*domain.ScheduledJob, error)

	// ListJobs returns all scheduled jobs.
	ListJobs(ctx context.Context) ([]domain.ScheduledJob, error)

	// SaveJob persists a job's state.
	// Creates or updates the job based on ID.
	SaveJob(ctx context.Context, job *domain.ScheduledJob) error

	// DeleteJob removes a job from storage.
	DeleteJob(ctx context.Context, jobID string) error

	// RecordResult logs a job execution result.
	RecordResult(ctx context.Context, result *domain.JobResult) error

	// GetJobHistory returns recent results for a job.
	// Results are ordered by start time descending (most recent first).
	GetJobHistory(ctx context.Context, jobID string, limit int) ([]domain.JobResult, error)

	// PruneHistory removes old results beyond the retention limit.
	// Keeps the most recent 'keep' results per job.
	PruneHistory(ctx context.Context, keep int) error
}
