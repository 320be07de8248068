package driven

// ConfigStore persists CLI settings (tokens, endpoints, index paths)
// as dot-notation keys, e.g. "github.token" or "storage.data_dir".
type ConfigStore interface {
	// Get returns the raw value for a key.
	Get(key string) (any, bool)

	// GetString returns the value for a key, or "" when absent or mistyped.
	GetString(key string) string

	// GetInt returns the value for a key, or 0 when absent or mistyped.
	GetInt(key string) int

	// GetBool returns the value for a key, or false when absent or mistyped.
	GetBool(key string) bool

	// Set stores and persists a value.
	Set(key string, value any) error

	// Delete removes and persists a key.
	Delete(key string) error

	// Load re-reads settings from the backing store.
	Load() error

	// Save writes settings to the backing store.
	Save() error
}
