package driving

import "github.com/custodia-labs/ragindex/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get returns the effective settings: defaults overlaid with stored values.
	Get() (*domain.Settings, error)

	// Set stores a single key after validating the resulting settings.
	Set(key, value string) error

	// Validate checks settings for consistency.
	Validate(settings *domain.Settings) error
}
