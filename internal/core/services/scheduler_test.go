package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driving"
)

// mockSyncService implements driving.SyncService for scheduler tests.
// When started and release are set, RunFullSync signals started and
// then blocks until release is closed.
type mockSyncService struct {
	mu       sync.Mutex
	runs     int
	runErr   error
	taskStat domain.TaskStatus
	started  chan struct{}
	release  chan struct{}
}

func (m *mockSyncService) RunFullSync(context.Context) (*domain.Task, error) {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()

	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}

	if m.runErr != nil {
		return nil, m.runErr
	}
	status := m.taskStat
	if status == "" {
		status = domain.TaskComplete
	}
	return &domain.Task{
		ID:          "mock-task",
		Kind:        domain.KindFullSync,
		Status:      status,
		Message:     "mock run",
		RowsUpdated: 7,
	}, nil
}

func (m *mockSyncService) TriggerFullSync(context.Context) (string, error)    { return "", nil }
func (m *mockSyncService) TriggerSingleCycle(context.Context) (string, error) { return "", nil }
func (m *mockSyncService) Cancel()                                            {}
func (m *mockSyncService) Running() bool                                      { return false }

func (m *mockSyncService) LatestStatus(context.Context) (*domain.Task, error) {
	return nil, domain.ErrNotFound
}

func (m *mockSyncService) TaskStatus(context.Context, string) (*domain.Task, error) {
	return nil, domain.ErrNotFound
}

func (m *mockSyncService) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

var _ driving.SyncService = (*mockSyncService)(nil)

// mockRefresher implements driven.SourceRefresher.
type mockRefresher struct {
	mu         sync.Mutex
	refreshes  int
	refreshErr error
}

func (m *mockRefresher) Refresh(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	return m.refreshErr
}

func (m *mockRefresher) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

func newTestScheduler(syncSvc driving.SyncService, interval time.Duration) (*Scheduler, *memory.SchedulerStore, *memory.ConfigStore) {
	store := memory.NewSchedulerStore()
	config := memory.NewConfigStore()
	return NewScheduler(store, config, syncSvc, interval), store, config
}

func TestSchedulerStartStop(t *testing.T) {
	sched, _, _ := newTestScheduler(&mockSyncService{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = sched.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, sched.Stop())
	wg.Wait()
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	sched, _, _ := newTestScheduler(&mockSyncService{}, time.Hour)
	require.NoError(t, sched.Stop())
}

func TestSchedulerEnsureJobCreatesFullSync(t *testing.T) {
	sched, store, _ := newTestScheduler(&mockSyncService{}, 2*time.Hour)
	ctx := context.Background()

	require.NoError(t, sched.ensureJob(ctx))

	job, err := store.GetJob(ctx, domain.JobIDFullSync)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "Full Sync", job.Name)
	assert.Equal(t, 2*time.Hour, job.Interval)
	assert.True(t, job.Enabled)
	assert.True(t, job.NextRun.After(time.Now()))
}

func TestSchedulerEnsureJobRealignsInterval(t *testing.T) {
	sched, store, _ := newTestScheduler(&mockSyncService{}, time.Hour)
	ctx := context.Background()

	require.NoError(t, sched.ensureJob(ctx))

	sched.interval = 30 * time.Minute
	require.NoError(t, sched.ensureJob(ctx))

	job, err := store.GetJob(ctx, domain.JobIDFullSync)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, job.Interval)
}

func TestSchedulerRunsDueJob(t *testing.T) {
	syncSvc := &mockSyncService{}
	sched, store, _ := newTestScheduler(syncSvc, time.Hour)
	ctx := context.Background()

	job := &domain.ScheduledJob{
		ID:       domain.JobIDFullSync,
		Name:     "Full Sync",
		Interval: time.Hour,
		NextRun:  time.Now().Add(-time.Minute),
		Enabled:  true,
	}
	require.NoError(t, store.SaveJob(ctx, job))

	sched.checkAndRunDueJobs(ctx)
	sched.wg.Wait()

	assert.Equal(t, 1, syncSvc.runCount())

	saved, err := store.GetJob(ctx, domain.JobIDFullSync)
	require.NoError(t, err)
	assert.Empty(t, saved.LastError)
	assert.False(t, saved.LastRun.IsZero())
	assert.False(t, saved.LastSuccess.IsZero())
	assert.True(t, saved.NextRun.After(time.Now()))

	history, err := sched.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, 7, history[0].ItemsProcessed)
}

func TestSchedulerSkipsDisabledAndFutureJobs(t *testing.T) {
	syncSvc := &mockSyncService{}
	sched, store, _ := newTestScheduler(syncSvc, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, &domain.ScheduledJob{
		ID:      "disabled",
		NextRun: time.Now().Add(-time.Minute),
		Enabled: false,
	}))
	require.NoError(t, store.SaveJob(ctx, &domain.ScheduledJob{
		ID:      domain.JobIDFullSync,
		NextRun: time.Now().Add(time.Hour),
		Enabled: true,
	}))

	sched.checkAndRunDueJobs(ctx)
	sched.wg.Wait()

	assert.Equal(t, 0, syncSvc.runCount())
}

func TestSchedulerSkipsJobAlreadyInFlight(t *testing.T) {
	syncSvc := &mockSyncService{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	sched, store, _ := newTestScheduler(syncSvc, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, &domain.ScheduledJob{
		ID:       domain.JobIDFullSync,
		Interval: time.Hour,
		NextRun:  time.Now().Add(-time.Minute),
		Enabled:  true,
	}))

	sched.checkAndRunDueJobs(ctx)
	<-syncSvc.started

	// The stored deadline has not moved yet, so the job still looks
	// due. The next tick must not fire it a second time while the
	// first run is going.
	sched.checkAndRunDueJobs(ctx)
	sched.checkAndRunDueJobs(ctx)

	close(syncSvc.release)
	sched.wg.Wait()

	assert.Equal(t, 1, syncSvc.runCount())

	saved, err := store.GetJob(ctx, domain.JobIDFullSync)
	require.NoError(t, err)
	assert.Empty(t, saved.LastError)

	history, err := sched.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
}

func TestSchedulerRefreshesSourceBeforeSync(t *testing.T) {
	syncSvc := &mockSyncService{}
	refresher := &mockRefresher{}
	sched, store, _ := newTestScheduler(syncSvc, time.Hour)
	sched.UseRefresher(refresher)
	sched.settle = 0
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, &domain.ScheduledJob{
		ID:       domain.JobIDFullSync,
		Interval: time.Hour,
		NextRun:  time.Now().Add(-time.Minute),
		Enabled:  true,
	}))

	sched.checkAndRunDueJobs(ctx)
	sched.wg.Wait()

	assert.Equal(t, 1, refresher.refreshCount())
	assert.Equal(t, 1, syncSvc.runCount())
}

func TestSchedulerAbortsCycleWhenRefreshFails(t *testing.T) {
	syncSvc := &mockSyncService{}
	refresher := &mockRefresher{refreshErr: errors.New("procedure timed out")}
	sched, store, _ := newTestScheduler(syncSvc, time.Hour)
	sched.UseRefresher(refresher)
	sched.settle = 0
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, &domain.ScheduledJob{
		ID:       domain.JobIDFullSync,
		Interval: time.Hour,
		NextRun:  time.Now().Add(-time.Minute),
		Enabled:  true,
	}))

	sched.checkAndRunDueJobs(ctx)
	sched.wg.Wait()

	// The view may be stale, so no sync ran.
	assert.Equal(t, 0, syncSvc.runCount())

	saved, err := store.GetJob(ctx, domain.JobIDFullSync)
	require.NoError(t, err)
	assert.Contains(t, saved.LastError, "procedure timed out")
	// The failed cycle still reschedules: the next tick retries.
	assert.True(t, saved.NextRun.After(time.Now()))

	history, err := sched.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
}

func TestSchedulerRecordsFailedRun(t *testing.T) {
	syncSvc := &mockSyncService{runErr: errors.New("source unreachable")}
	sched, store, _ := newTestScheduler(syncSvc, time.Hour)
	ctx := context.Background()

	job := &domain.ScheduledJob{
		ID:       domain.JobIDFullSync,
		Interval: time.Hour,
		NextRun:  time.Now().Add(-time.Minute),
		Enabled:  true,
	}
	require.NoError(t, store.SaveJob(ctx, job))

	sched.checkAndRunDueJobs(ctx)
	sched.wg.Wait()

	saved, err := store.GetJob(ctx, domain.JobIDFullSync)
	require.NoError(t, err)
	assert.Equal(t, "source unreachable", saved.LastError)
	assert.True(t, saved.LastSuccess.IsZero())
	// Failed runs still reschedule: the next tick retries.
	assert.True(t, saved.NextRun.After(time.Now()))

	history, err := sched.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
}

func TestSchedulerTreatsErrorTaskAsFailure(t *testing.T) {
	syncSvc := &mockSyncService{taskStat: domain.TaskError}
	sched, store, _ := newTestScheduler(syncSvc, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, &domain.ScheduledJob{
		ID:       domain.JobIDFullSync,
		Interval: time.Hour,
		NextRun:  time.Now().Add(-time.Minute),
		Enabled:  true,
	}))

	sched.checkAndRunDueJobs(ctx)
	sched.wg.Wait()

	saved, err := store.GetJob(ctx, domain.JobIDFullSync)
	require.NoError(t, err)
	assert.Equal(t, "mock run", saved.LastError)
}

func TestSchedulerReschedule(t *testing.T) {
	sched, store, config := newTestScheduler(&mockSyncService{}, time.Hour)
	ctx := context.Background()

	require.NoError(t, sched.ensureJob(ctx))
	require.NoError(t, sched.Reschedule(ctx, 15*time.Minute))

	job, err := store.GetJob(ctx, domain.JobIDFullSync)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, job.Interval)
	// The old deadline is replaced, not kept alongside the new one.
	assert.True(t, job.NextRun.Before(time.Now().Add(16*time.Minute)))
	assert.True(t, job.NextRun.After(time.Now().Add(14*time.Minute)))

	assert.Equal(t, 15, config.GetInt("scheduler.interval_minutes"))
}

func TestSchedulerRescheduleRejectsSubMinuteInterval(t *testing.T) {
	sched, _, _ := newTestScheduler(&mockSyncService{}, time.Hour)
	err := sched.Reschedule(context.Background(), 10*time.Second)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSchedulerRescheduleWithoutJobCreatesIt(t *testing.T) {
	sched, store, _ := newTestScheduler(&mockSyncService{}, time.Hour)
	ctx := context.Background()

	require.NoError(t, sched.Reschedule(ctx, 45*time.Minute))

	job, err := store.GetJob(ctx, domain.JobIDFullSync)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 45*time.Minute, job.Interval)
}

func TestSchedulerJobAccessor(t *testing.T) {
	sched, _, _ := newTestScheduler(&mockSyncService{}, time.Hour)
	ctx := context.Background()

	_, err := sched.Job(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, sched.ensureJob(ctx))

	job, err := sched.Job(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.JobIDFullSync, job.ID)
}
