package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
	"github.com/custodia-labs/regsync/internal/core/ports/driving"
	"github.com/custodia-labs/regsync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncService = (*SyncOrchestrator)(nil)

// Config keys the orchestrator reads per run, so settings changes
// apply without a restart.
const (
	keyChunkSize = "etl.chunk_size"
	keyResetKey  = "sync.reset_key"
)

// interChunkDelay paces extractor calls within a run to limit load on
// the source.
const interChunkDelay = time.Second

// SyncOrchestrator drives the extract, normalise, hash, upsert loop
// and owns the run state machine. At most one run is active at a
// time; the cursor, cache and ledger are only ever mutated by the run
// holding the guard.
type SyncOrchestrator struct {
	extractor driven.ChunkExtractor
	cache     driven.CacheStore
	cursor    driven.CursorStore
	ledger    driven.TaskLedger
	snapshot  driven.SnapshotWriter
	config    driven.ConfigStore

	throttle *rate.Limiter

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(
	extractor driven.ChunkExtractor,
	cache driven.CacheStore,
	cursor driven.CursorStore,
	ledger driven.TaskLedger,
	snapshot driven.SnapshotWriter,
	config driven.ConfigStore,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		extractor: extractor,
		cache:     cache,
		cursor:    cursor,
		ledger:    ledger,
		snapshot:  snapshot,
		config:    config,
		throttle:  rate.NewLimiter(rate.Every(interChunkDelay), 1),
	}
}

// TriggerFullSync starts a full sync in the background and returns its
// task id immediately.
func (o *SyncOrchestrator) TriggerFullSync(ctx context.Context) (string, error) {
	return o.trigger(ctx, domain.KindFullSync, o.fullSync)
}

// TriggerSingleCycle starts a one-chunk run in the background and
// returns its task id immediately.
func (o *SyncOrchestrator) TriggerSingleCycle(ctx context.Context) (string, error) {
	return o.trigger(ctx, domain.KindSingleCycle, o.singleCycle)
}

// RunFullSync executes a full sync synchronously and returns the
// terminal task record.
func (o *SyncOrchestrator) RunFullSync(ctx context.Context) (*domain.Task, error) {
	task, runCtx, err := o.begin(ctx, domain.KindFullSync)
	if err != nil {
		return nil, err
	}
	defer o.end()

	o.fullSync(runCtx, task)
	return task, nil
}

// Cancel requests cooperative cancellation of the in-flight run.
func (o *SyncOrchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Running reports whether a run is currently in flight.
func (o *SyncOrchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Wait blocks until any background run has finished. Used on shutdown
// and in tests.
func (o *SyncOrchestrator) Wait() {
	o.wg.Wait()
}

// LatestStatus returns the most recently triggered task.
func (o *SyncOrchestrator) LatestStatus(ctx context.Context) (*domain.Task, error) {
	return o.ledger.Latest(ctx)
}

// TaskStatus returns the task with the given id.
func (o *SyncOrchestrator) TaskStatus(ctx context.Context, id string) (*domain.Task, error) {
	return o.ledger.Get(ctx, id)
}

// trigger acquires the run guard, records the running task, and
// executes run in the background. The caller gets the task id without
// waiting for the pipeline.
func (o *SyncOrchestrator) trigger(
	ctx context.Context,
	kind domain.TaskKind,
	run func(context.Context, *domain.Task),
) (string, error) {
	task, runCtx, err := o.begin(ctx, kind)
	if err != nil {
		return "", err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.end()
		run(runCtx, task)
	}()

	return task.ID, nil
}

// begin acquires the single-flight guard and writes the running ledger
// entry. Overlapping triggers fail with ErrSyncInProgress rather than
// queuing.
func (o *SyncOrchestrator) begin(ctx context.Context, kind domain.TaskKind) (*domain.Task, context.Context, error) {
	if o.extractor == nil {
		return nil, nil, fmt.Errorf("%w: no source connection", domain.ErrMissingCredentials)
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, nil, domain.ErrSyncInProgress
	}
	o.running = true
	// Runs are detached from the trigger's request context: the caller
	// polls the ledger, so an aborted request must not kill the run.
	runCtx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.mu.Unlock()

	task := &domain.Task{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    domain.TaskRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := o.ledger.Put(ctx, *task); err != nil {
		o.end()
		return nil, nil, fmt.Errorf("recording task start: %w", err)
	}

	logger.Info("task %s: starting %s", task.ID, kind)
	return task, runCtx, nil
}

// end releases the single-flight guard.
func (o *SyncOrchestrator) end() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.running = false
	o.cancel = nil
	o.mu.Unlock()
}

// fullSync loops chunk by chunk until the source is exhausted, then
// exports a snapshot. The cursor is reset to the start sentinel first,
// so a full sync always re-walks the whole source; unchanged rows cost
// nothing thanks to the hash-compare upsert.
func (o *SyncOrchestrator) fullSync(ctx context.Context, task *domain.Task) {
	chunkSize := o.chunkSize()
	position := o.resetKey()

	if err := o.cursor.Save(ctx, position); err != nil {
		o.fail(task, fmt.Errorf("resetting cursor: %w", err))
		return
	}

	for {
		if err := ctx.Err(); err != nil {
			o.fail(task, fmt.Errorf("sync canceled: %w", err))
			return
		}

		rows, err := o.extractor.Fetch(ctx, position, chunkSize)
		if err != nil {
			// Cursor untouched: the next run retries this chunk.
			o.fail(task, fmt.Errorf("fetching chunk: %w", err))
			return
		}
		if len(rows) == 0 {
			break // Source exhausted - the sole termination condition
		}

		written, last, err := o.commitChunk(ctx, rows)
		if err != nil {
			o.fail(task, err)
			return
		}
		task.RowsReceived += len(rows)
		task.RowsUpdated += written
		position = last

		logger.Debug("task %s: chunk of %d rows committed, cursor at %s",
			task.ID, len(rows), position)

		if err := o.throttle.Wait(ctx); err != nil {
			o.fail(task, fmt.Errorf("sync canceled: %w", err))
			return
		}
	}

	// Export is best-effort: a failed snapshot never fails the sync.
	exported, err := o.snapshot.Export(ctx)
	if err != nil {
		logger.Error("task %s: export failed: %v", task.ID, err)
		exported = ""
	}

	task.Status = domain.TaskComplete
	task.EndedAt = time.Now().UTC()
	task.Message = "full sync finished"
	task.ExportedFile = exported
	o.record(task)

	logger.Info("task %s: full sync complete, %d rows received, %d updated",
		task.ID, task.RowsReceived, task.RowsUpdated)
}

// singleCycle processes exactly one chunk. An exhausted source wraps
// the cursor back to the start sentinel instead of completing, so the
// next cycle starts over.
func (o *SyncOrchestrator) singleCycle(ctx context.Context, task *domain.Task) {
	position, err := o.cursor.Load(ctx)
	if err != nil {
		o.fail(task, fmt.Errorf("loading cursor: %w", err))
		return
	}

	rows, err := o.extractor.Fetch(ctx, position, o.chunkSize())
	if err != nil {
		o.fail(task, fmt.Errorf("fetching chunk: %w", err))
		return
	}

	if len(rows) == 0 {
		if err := o.cursor.Save(ctx, o.resetKey()); err != nil {
			o.fail(task, fmt.Errorf("wrapping cursor: %w", err))
			return
		}
		task.Status = domain.TaskComplete
		task.EndedAt = time.Now().UTC()
		task.Message = "no new rows, cursor reset to start"
		o.record(task)
		return
	}

	written, last, err := o.commitChunk(ctx, rows)
	if err != nil {
		o.fail(task, err)
		return
	}

	task.Status = domain.TaskSuccess
	task.EndedAt = time.Now().UTC()
	task.RowsReceived = len(rows)
	task.RowsUpdated = written
	task.Message = fmt.Sprintf("processed one chunk, cursor at %s", last)
	o.record(task)
}

// commitChunk normalises and upserts one chunk, then persists the
// advanced cursor. The cursor is only saved after the cache commit, so
// a crash between the two re-fetches the chunk instead of skipping it.
func (o *SyncOrchestrator) commitChunk(ctx context.Context, rows []domain.SourceRow) (int, string, error) {
	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := domain.NormalizeRow(row)
		if err != nil {
			return 0, "", fmt.Errorf("normalising chunk: %w", err)
		}
		records = append(records, rec)
	}

	written, err := o.cache.UpsertBatch(ctx, records)
	if err != nil {
		// Abort-chunk policy: leave the cursor so a retry replays the
		// whole chunk against the idempotent upsert.
		return 0, "", fmt.Errorf("upserting chunk: %w", err)
	}

	last := records[len(records)-1].RegNo
	if err := o.cursor.Save(ctx, last); err != nil {
		return 0, "", fmt.Errorf("saving cursor: %w", err)
	}
	return written, last, nil
}

// fail moves the task to the error state and records it.
func (o *SyncOrchestrator) fail(task *domain.Task, err error) {
	logger.Error("task %s: %v", task.ID, err)
	task.Status = domain.TaskError
	task.EndedAt = time.Now().UTC()
	task.Message = err.Error()
	o.record(task)
}

// record persists a terminal task state. Ledger write failures are
// logged, not propagated: the run outcome itself is already decided.
func (o *SyncOrchestrator) record(task *domain.Task) {
	if err := o.ledger.Put(context.Background(), *task); err != nil {
		logger.Error("task %s: recording status: %v", task.ID, err)
	}
}

// chunkSize reads the configured chunk size, falling back to the
// default for missing or nonsensical values.
func (o *SyncOrchestrator) chunkSize() int {
	size := o.config.GetInt(keyChunkSize)
	if size < 1 {
		return domain.DefaultSettings().ETL.ChunkSize
	}
	return size
}

// resetKey returns the start-of-data sentinel the cursor wraps to.
func (o *SyncOrchestrator) resetKey() string {
	return o.config.GetString(keyResetKey)
}
