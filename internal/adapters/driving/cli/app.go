package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/custodia-labs/regsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/regsync/internal/adapters/driven/export/csvfile"
	"github.com/custodia-labs/regsync/internal/adapters/driven/source/mssql"
	"github.com/custodia-labs/regsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
	"github.com/custodia-labs/regsync/internal/core/services"
	"github.com/custodia-labs/regsync/internal/logger"
)

// app holds the wired application. Commands build one, use it, and
// close it before returning.
type app struct {
	config    *file.ConfigStore
	store     *sqlite.Store
	extractor *mssql.Extractor
	syncOrch  *services.SyncOrchestrator
	settings  *services.SettingsService
	scheduler *services.Scheduler
}

// newApp wires storage, config and services. withSource controls
// whether the upstream database connection is opened; commands that
// only read local state skip it.
func newApp(ctx context.Context, withSource bool) (*app, error) {
	config, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	a := &app{config: config, store: store}

	// The interface must stay nil when no source is opened; wrapping
	// the nil *mssql.Extractor would smuggle a typed nil past the
	// orchestrator's guard.
	var extractor driven.ChunkExtractor
	if withSource {
		a.extractor, err = mssql.Open(ctx, mssql.FromEnv())
		if err != nil {
			store.Close() //nolint:errcheck
			return nil, err
		}
		a.extractor.SetRefreshStatement(config.GetString("sync.refresh_statement"))
		extractor = a.extractor
	}

	exporter := csvfile.New(store.CacheStore(), a.exportDir())

	a.syncOrch = services.NewSyncOrchestrator(
		extractor,
		store.CacheStore(),
		store.CursorStore(),
		store.TaskLedger(),
		exporter,
		config,
	)
	a.scheduler = services.NewScheduler(
		store.SchedulerStore(),
		config,
		a.syncOrch,
		a.interval(),
	)
	if a.extractor != nil {
		a.scheduler.UseRefresher(a.extractor)
	}
	a.settings = services.NewSettingsService(config, a.scheduler)

	return a, nil
}

// exportDir resolves the snapshot directory next to the data dir.
func (a *app) exportDir() string {
	if dir := a.config.GetString("export.dir"); dir != "" {
		return dir
	}
	return filepath.Join(filepath.Dir(a.store.Path()), "exports")
}

// interval reads the configured scheduler interval, falling back to
// the default.
func (a *app) interval() time.Duration {
	settings, err := services.NewSettingsService(a.config, nil).Get()
	if err != nil {
		logger.Warn("reading settings: %v", err)
		settings = domain.DefaultSettings()
	}
	return settings.Scheduler.Interval()
}

// Close releases the database handles.
func (a *app) Close() {
	if a.extractor != nil {
		if err := a.extractor.Close(); err != nil {
			logger.Warn("closing source connection: %v", err)
		}
	}
	if err := a.store.Close(); err != nil {
		logger.Warn("closing local store: %v", err)
	}
}
