package driven

// ConfigStore reads and writes config.toml as flattened dot keys, so
// [schedules.shopping] interval = "24h" is "schedules.shopping.interval".
type ConfigStore interface {
	// Get returns the raw value and whether the key exists.
	Get(key string) (any, bool)

	// GetString returns "" for missing or non-string values.
	GetString(key string) string

	// GetInt returns 0 for missing or non-integer values.
	GetInt(key string) int

	// GetBool returns false for missing or non-boolean values.
	GetBool(key string) bool

	// GetStringSlice treats a single string as a one-element slice.
	GetStringSlice(key string) []string

	// Keys returns every flattened key starting with prefix, sorted.
	Keys(prefix string) []string

	// Set stores value under key and writes the file.
	Set(key string, value any) error

	// Save writes the file.
	Save() error

	// Load re-reads the file, replacing everything held in memory.
	Load() error

	// Path returns the file path.
	Path() string
}
