package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
	"github.com/custodia-labs/regsync/internal/core/ports/driving"
	"github.com/custodia-labs/regsync/internal/logger"
)

// historyKeep bounds the per-job result history retained in the store.
const historyKeep = 100

// refreshSettleDelay is how long a scheduled run waits after the
// source-side refresh before syncing, giving the rebuilt view time to
// propagate.
const refreshSettleDelay = 10 * time.Second

// Scheduler runs the periodic full sync. It persists its job state so
// the next-run time survives restarts, and polls on a coarse ticker
// rather than sleeping until the exact deadline.
type Scheduler struct {
	store     driven.SchedulerStore
	config    driven.ConfigStore
	syncSvc   driving.SyncService
	refresher driven.SourceRefresher
	interval  time.Duration
	settle    time.Duration

	mu       sync.Mutex
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler. interval is the initial full-sync
// period; Reschedule changes it at runtime.
func NewScheduler(
	store driven.SchedulerStore,
	config driven.ConfigStore,
	syncSvc driving.SyncService,
	interval time.Duration,
) *Scheduler {
	return &Scheduler{
		store:    store,
		config:   config,
		syncSvc:  syncSvc,
		interval: interval,
		settle:   refreshSettleDelay,
		inFlight: make(map[string]bool),
	}
}

// UseRefresher sets the source refresher run ahead of every scheduled
// sync. Optional; without one scheduled runs sync directly. Must be
// called before Start.
func (s *Scheduler) UseRefresher(r driven.SourceRefresher) {
	s.refresher = r
}

// Start begins the scheduler loop. Blocks until Stop is called or the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.ensureJob(ctx); err != nil {
		logger.Error("scheduler: initialising job: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler, waiting for an in-flight
// job to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Reschedule changes the sync interval at runtime. The stored job's
// next run moves to now+interval, replacing the previous deadline so
// the old and new schedules never both fire. The interval is persisted
// to config so it survives restarts.
func (s *Scheduler) Reschedule(ctx context.Context, interval time.Duration) error {
	if interval < time.Minute {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()

	job, err := s.store.GetJob(ctx, domain.JobIDFullSync)
	if err != nil {
		return err
	}
	if job == nil {
		return s.ensureJob(ctx)
	}
	job.Interval = interval
	job.NextRun = time.Now().Add(interval)
	if err := s.store.SaveJob(ctx, job); err != nil {
		return err
	}

	if err := s.config.Set("scheduler.interval_minutes", int(interval.Minutes())); err != nil {
		logger.Warn("scheduler: persisting interval: %v", err)
	}

	logger.Info("scheduler: rescheduled %s every %s", domain.JobIDFullSync, interval)
	return nil
}

// Job returns the stored full-sync job state.
func (s *Scheduler) Job(ctx context.Context) (*domain.ScheduledJob, error) {
	job, err := s.store.GetJob(ctx, domain.JobIDFullSync)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

// History returns the most recent execution results, newest first.
func (s *Scheduler) History(ctx context.Context, limit int) ([]domain.JobResult, error) {
	return s.store.GetJobHistory(ctx, domain.JobIDFullSync, limit)
}

// ensureJob creates the full-sync job on first start, or realigns its
// interval when the configured value changed while the scheduler was
// down.
func (s *Scheduler) ensureJob(ctx context.Context) error {
	s.mu.Lock()
	interval := s.interval
	s.mu.Unlock()

	job, err := s.store.GetJob(ctx, domain.JobIDFullSync)
	if err != nil {
		return err
	}

	if job == nil {
		job = &domain.ScheduledJob{
			ID:       domain.JobIDFullSync,
			Name:     "Full Sync",
			Interval: interval,
			Enabled:  true,
			NextRun:  time.Now().Add(interval),
		}
	} else if job.Interval != interval {
		job.Interval = interval
		job.NextRun = time.Now().Add(interval)
	}

	return s.store.SaveJob(ctx, job)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueJobs(ctx)

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueJobs(ctx)
		}
	}
}

// checkAndRunDueJobs finds and executes jobs whose deadline passed.
func (s *Scheduler) checkAndRunDueJobs(ctx context.Context) {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		logger.Error("scheduler: listing jobs: %v", err)
		return
	}

	now := time.Now()
	for i := range jobs {
		job := &jobs[i]
		if !job.Enabled {
			continue
		}
		if job.NextRun.IsZero() || !job.NextRun.After(now) {
			s.runJob(ctx, job)
		}
	}
}

// runJob executes one job in the background, then updates the stored
// job state and history. A sync that outlives one poll tick must not
// be fired again, so jobs already in flight are skipped until their
// run finishes.
func (s *Scheduler) runJob(ctx context.Context, job *domain.ScheduledJob) {
	s.mu.Lock()
	if s.inFlight[job.ID] {
		s.mu.Unlock()
		return
	}
	s.inFlight[job.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, job.ID)
			s.mu.Unlock()
		}()

		result := &domain.JobResult{
			JobID:     job.ID,
			StartedAt: time.Now(),
		}

		var task *domain.Task
		err := s.refreshSource(ctx)
		if err == nil {
			task, err = s.syncSvc.RunFullSync(ctx)
			if err == nil && task.Status == domain.TaskError {
				err = errors.New(task.Message)
			}
		}
		if task != nil {
			result.ItemsProcessed = task.RowsUpdated
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			job.LastError = err.Error()
			logger.Error("scheduler: job %s failed: %v", job.ID, err)
		} else {
			result.Success = true
			job.LastError = ""
			job.LastSuccess = result.EndedAt
		}

		// The next run counts from completion, not from the deadline,
		// so a slow sync never stacks up overlapping runs.
		s.mu.Lock()
		interval := s.interval
		s.mu.Unlock()
		job.LastRun = result.StartedAt
		job.Interval = interval
		job.NextRun = result.EndedAt.Add(interval)

		if saveErr := s.store.SaveJob(ctx, job); saveErr != nil {
			logger.Error("scheduler: saving job %s: %v", job.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Error("scheduler: recording result for %s: %v", job.ID, recordErr)
		}
		if pruneErr := s.store.PruneHistory(ctx, historyKeep); pruneErr != nil {
			logger.Error("scheduler: pruning history: %v", pruneErr)
		}
	}()
}

// refreshSource rebuilds the source view before a scheduled sync and
// waits for the change to propagate. A failed refresh aborts the
// cycle: syncing a stale view would cache stale rows.
func (s *Scheduler) refreshSource(ctx context.Context) error {
	if s.refresher == nil {
		return nil
	}
	if err := s.refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing source: %w", err)
	}
	select {
	case <-time.After(s.settle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
