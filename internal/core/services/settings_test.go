package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/regsync/internal/core/domain"
)

type mockRescheduler struct {
	calls    int
	interval time.Duration
}

func (m *mockRescheduler) Reschedule(_ context.Context, interval time.Duration) error {
	m.calls++
	m.interval = interval
	return nil
}

func TestSettingsGetDefaults(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestSettingsGetReadsStoredValues(t *testing.T) {
	config := memory.NewConfigStore()
	require.NoError(t, config.Set("scheduler.interval_minutes", 30))
	require.NoError(t, config.Set("etl.chunk_size", 250))

	svc := NewSettingsService(config, nil)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 30, settings.Scheduler.IntervalMinutes)
	assert.Equal(t, 250, settings.ETL.ChunkSize)
}

func TestSettingsGetIgnoresInvalidStoredValues(t *testing.T) {
	config := memory.NewConfigStore()
	require.NoError(t, config.Set("etl.chunk_size", -5))

	svc := NewSettingsService(config, nil)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings().ETL.ChunkSize, settings.ETL.ChunkSize)
}

func TestSettingsUpdatePersistsAndReschedules(t *testing.T) {
	config := memory.NewConfigStore()
	sched := &mockRescheduler{}
	svc := NewSettingsService(config, sched)

	err := svc.Update(domain.Settings{
		Scheduler: domain.SchedulerSettings{IntervalMinutes: 15},
		ETL:       domain.ETLSettings{ChunkSize: 500},
	})
	require.NoError(t, err)

	assert.Equal(t, 15, config.GetInt("scheduler.interval_minutes"))
	assert.Equal(t, 500, config.GetInt("etl.chunk_size"))
	assert.Equal(t, 1, sched.calls)
	assert.Equal(t, 15*time.Minute, sched.interval)
}

func TestSettingsUpdateRejectsInvalid(t *testing.T) {
	sched := &mockRescheduler{}
	svc := NewSettingsService(memory.NewConfigStore(), sched)

	err := svc.Update(domain.Settings{
		Scheduler: domain.SchedulerSettings{IntervalMinutes: 0},
		ETL:       domain.ETLSettings{ChunkSize: 500},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, sched.calls)
}

func TestSettingsUpdateWithoutScheduler(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	err := svc.Update(domain.DefaultSettings())
	require.NoError(t, err)
}
