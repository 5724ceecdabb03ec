package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
	"github.com/custodia-labs/regsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

const keyInterval = "scheduler.interval_minutes"

// rescheduler is the slice of the scheduler the settings service
// needs: applying a new interval without restarting.
type rescheduler interface {
	Reschedule(ctx context.Context, interval time.Duration) error
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	scheduler   rescheduler
}

// NewSettingsService creates a new settings service. scheduler may be
// nil when no scheduler is running (one-shot CLI commands).
func NewSettingsService(configStore driven.ConfigStore, scheduler rescheduler) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		scheduler:   scheduler,
	}
}

// Get retrieves current settings, falling back to defaults for keys
// that have never been set.
func (s *SettingsService) Get() (domain.Settings, error) {
	defaults := domain.DefaultSettings()

	return domain.Settings{
		Scheduler: domain.SchedulerSettings{
			IntervalMinutes: s.getInt(keyInterval, defaults.Scheduler.IntervalMinutes),
		},
		ETL: domain.ETLSettings{
			ChunkSize: s.getInt(keyChunkSize, defaults.ETL.ChunkSize),
		},
	}, nil
}

// Update validates, persists, and applies new settings.
func (s *SettingsService) Update(settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(keyInterval, settings.Scheduler.IntervalMinutes); err != nil {
		return fmt.Errorf("saving scheduler interval: %w", err)
	}
	if err := s.configStore.Set(keyChunkSize, settings.ETL.ChunkSize); err != nil {
		return fmt.Errorf("saving chunk size: %w", err)
	}

	if s.scheduler != nil {
		if err := s.scheduler.Reschedule(context.Background(), settings.Scheduler.Interval()); err != nil {
			return fmt.Errorf("applying scheduler interval: %w", err)
		}
	}
	return nil
}

// getInt reads an int key with a fallback for unset or invalid values.
func (s *SettingsService) getInt(key string, fallback int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return fallback
	}
	v := s.configStore.GetInt(key)
	if v < 1 {
		return fallback
	}
	return v
}
