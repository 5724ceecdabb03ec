package domain

import (
	"fmt"
	"time"
)

// Settings is the user-tunable application configuration. The shape
// mirrors the persisted config file.
type Settings struct {
	Scheduler SchedulerSettings `json:"scheduler"`
	ETL       ETLSettings       `json:"etl"`
}

// SchedulerSettings configures the periodic full-sync job.
type SchedulerSettings struct {
	// IntervalMinutes is how often the scheduled full sync fires.
	IntervalMinutes int `json:"interval_minutes"`
}

// ETLSettings configures the extraction pipeline.
type ETLSettings struct {
	// ChunkSize bounds how many rows one extractor fetch returns.
	ChunkSize int `json:"chunk_size"`
}

// Interval returns the scheduler interval as a duration.
func (s SchedulerSettings) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// DefaultSettings returns the defaults used when no config exists yet.
func DefaultSettings() Settings {
	return Settings{
		Scheduler: SchedulerSettings{IntervalMinutes: 60},
		ETL:       ETLSettings{ChunkSize: 1000},
	}
}

// Validate checks settings for values the pipeline cannot run with.
func (s Settings) Validate() error {
	if s.Scheduler.IntervalMinutes < 1 {
		return fmt.Errorf("scheduler interval must be at least 1 minute: %w", ErrInvalidInput)
	}
	if s.ETL.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1: %w", ErrInvalidInput)
	}
	return nil
}
