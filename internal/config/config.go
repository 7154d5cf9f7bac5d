package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Store backends the widget can persist into.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all widget configuration.
type Config struct {
	// Backend settings
	EndpointURL    string
	APIKey         string
	RequestTimeout time.Duration

	// State settings
	StoreBackend string
	StatePath    string

	// Feature flags
	Verbose bool
}

// New creates a configuration with default values.
func New() *Config {
	return &Config{
		EndpointURL:    "http://localhost:8000/chat",
		RequestTimeout: 120 * time.Second,
		StoreBackend:   StoreFile,
		StatePath:      expandHome("~/.chatwidget/state.json"),
	}
}

// FromEnvironment builds a config from defaults, a .env file if present, and
// process environment variables.
func FromEnvironment() *Config {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	cfg := New()
	if v := os.Getenv("CHAT_ENDPOINT_URL"); v != "" {
		cfg.EndpointURL = v
	}
	if v := os.Getenv("CHAT_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("CHAT_STORE"); v != "" {
		cfg.StoreBackend = v
	}
	if v := os.Getenv("CHAT_STATE_PATH"); v != "" {
		cfg.StatePath = expandHome(v)
	}
	if v := os.Getenv("CHAT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	return cfg
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.EndpointURL == "" {
		return errors.New("endpoint URL cannot be empty")
	}
	switch c.StoreBackend {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return errors.Errorf("unknown store backend %q (want file, sqlite or memory)", c.StoreBackend)
	}
	if c.StoreBackend != StoreMemory && c.StatePath == "" {
		return errors.New("state path cannot be empty")
	}
	return nil
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}
