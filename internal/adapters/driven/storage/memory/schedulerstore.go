package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
)

// Ensure SchedulerStore implements the interface.
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore is an in-memory implementation of
// driven.SchedulerStore for testing.
type SchedulerStore struct {
	mu      sync.RWMutex
	jobs    map[string]domain.ScheduledJob
	results []domain.JobResult
}

// NewSchedulerStore creates a new in-memory scheduler store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{
		jobs: make(map[string]domain.ScheduledJob),
	}
}

// GetJob retrieves a job by ID, or nil if absent.
func (s *SchedulerStore) GetJob(_ context.Context, jobID string) (*domain.ScheduledJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

// ListJobs returns all jobs.
func (s *SchedulerStore) ListJobs(_ context.Context) ([]domain.ScheduledJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	jobs := make([]domain.ScheduledJob, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, s.jobs[id])
	}
	return jobs, nil
}

// SaveJob creates or updates a job.
func (s *SchedulerStore) SaveJob(_ context.Context, job *domain.ScheduledJob) error {
	if job == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

// DeleteJob removes a job.
func (s *SchedulerStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

// RecordResult appends an execution result.
func (s *SchedulerStore) RecordResult(_ context.Context, result *domain.JobResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, *result)
	return nil
}

// GetJobHistory returns recent results for a job, newest first.
func (s *SchedulerStore) GetJobHistory(_ context.Context, jobID string, limit int) ([]domain.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.JobResult
	for i := len(s.results) - 1; i >= 0 && len(results) < limit; i-- {
		if s.results[i].JobID == jobID {
			results = append(results, s.results[i])
		}
	}
	return results, nil
}

// PruneHistory keeps the most recent 'keep' results per job.
func (s *SchedulerStore) PruneHistory(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	var kept []domain.JobResult
	for i := len(s.results) - 1; i >= 0; i-- {
		r := s.results[i]
		if counts[r.JobID] >= keep {
			continue
		}
		counts[r.JobID]++
		kept = append([]domain.JobResult{r}, kept...)
	}
	s.results = kept
	return nil
}
