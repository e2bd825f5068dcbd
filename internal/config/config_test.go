package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, "auto", cfg.Theme)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().BaseURL, cfg.BaseURL)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cfg := DefaultConfig()
	cfg.BaseURL = "https://assist.example.com"
	cfg.Theme = "dark"
	cfg.Logging.Debug = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://assist.example.com", loaded.BaseURL)
	assert.Equal(t, "dark", loaded.Theme)
	assert.True(t, loaded.Logging.Debug)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ASSIST_BASE_URL", "http://localhost:8000")
	t.Setenv("ASSIST_WS_URL", "ws://localhost:8000")
	t.Setenv("ASSIST_DEBUG", "true")
	t.Setenv("ASSIST_PAGE_SIZE", "25")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
	assert.Equal(t, "ws://localhost:8000", cfg.WSURL)
	assert.True(t, cfg.Logging.Debug)
	assert.Equal(t, 25, cfg.PageSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty base url", func(c *Config) { c.BaseURL = "" }, true},
		{"relative base url", func(c *Config) { c.BaseURL = "backend.local" }, true},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, true},
		{"bad theme", func(c *Config) { c.Theme = "solarized" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		ws   string
		want string
	}{
		{"explicit", "https://a.example.com", "wss://stream.example.com", "wss://stream.example.com"},
		{"derived from https", "https://a.example.com", "", "wss://a.example.com"},
		{"derived from http", "http://localhost:8000", "", "ws://localhost:8000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{BaseURL: tt.base, WSURL: tt.ws}
			assert.Equal(t, tt.want, cfg.WebSocketURL())
		})
	}
}
