package driving

import "github.com/custodia-labs/adreports/internal/core/domain"

// SettingsService reads and updates application settings.
type SettingsService interface {
	// Environment returns the active environment.
	Environment() domain.Environment

	// Settings returns the settings resolved for the active environment.
	Settings() domain.AppSettings

	// SchedulerConfig builds the scheduler configuration from the schedules table.
	SchedulerConfig() (domain.SchedulerConfig, error)

	// Value returns a raw configuration value.
	Value(key string) (any, bool)

	// SetValue parses raw and stores it under key.
	SetValue(key, raw string) error
}
