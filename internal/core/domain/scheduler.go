package domain

import "time"

// ScheduledJob represents a recurring background job.
type ScheduledJob struct {
	// ID is the unique identifier for the job.
	ID string

	// Name is a human-readable name for the job.
	Name string

	// Interval defines how often the job should run.
	Interval time.Duration

	// LastRun is when the job last ran.
	LastRun time.Time

	// NextRun is when the job should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the job last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the job is active.
	Enabled bool
}

// JobResult represents the outcome of a job execution.
type JobResult struct {
	// JobID identifies which job was run.
	JobID string

	// StartedAt is when the execution started.
	StartedAt time.Time

	// EndedAt is when the execution completed.
	EndedAt time.Time

	// Success indicates whether the execution completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// ItemsProcessed counts cache rows written by the execution.
	ItemsProcessed int
}

// JobIDFullSync is the single periodic job regsync schedules.
// Exactly one job with this ID exists at a time.
const JobIDFullSync = "full-sync"
