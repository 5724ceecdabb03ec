package driving

import "github.com/custodia-labs/regsync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings, falling back to defaults for
	// keys that have never been set.
	Get() (domain.Settings, error)

	// Update validates, persists, and applies new settings. The
	// scheduler is rescheduled live to the new interval.
	Update(settings domain.Settings) error
}
