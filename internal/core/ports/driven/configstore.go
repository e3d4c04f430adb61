package driven

// ConfigStore persists raw configuration values under dot-notation keys
// ("embedding.model"). Parsing and validation belong to the settings service.
type ConfigStore interface {
	// Get returns the raw value stored under key.
	Get(key string) (any, bool)

	// Set stores and persists a value.
	Set(key string, value any) error

	Save() error
	Load() error

	// Keys returns every configured key, sorted.
	Keys() []string

	// Path returns where the configuration lives.
	Path() string
}
