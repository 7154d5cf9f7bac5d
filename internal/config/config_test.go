package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, StoreFile, cfg.StoreBackend)
	assert.NotEmpty(t, cfg.StatePath)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvironment(t *testing.T) {
	t.Setenv("CHAT_ENDPOINT_URL", "https://api.example.com/chat")
	t.Setenv("CHAT_API_KEY", "k-123")
	t.Setenv("CHAT_STORE", "sqlite")
	t.Setenv("CHAT_STATE_PATH", "/tmp/widget.db")
	t.Setenv("CHAT_TIMEOUT", "30s")

	cfg := FromEnvironment()
	assert.Equal(t, "https://api.example.com/chat", cfg.EndpointURL)
	assert.Equal(t, "k-123", cfg.APIKey)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, "/tmp/widget.db", cfg.StatePath)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty endpoint",
			mutate:  func(c *Config) { c.EndpointURL = "" },
			wantErr: "endpoint URL",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.StoreBackend = "redis" },
			wantErr: "store backend",
		},
		{
			name: "empty state path",
			mutate: func(c *Config) {
				c.StoreBackend = StoreSQLite
				c.StatePath = ""
			},
			wantErr: "state path",
		},
		{
			name: "memory needs no path",
			mutate: func(c *Config) {
				c.StoreBackend = StoreMemory
				c.StatePath = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
