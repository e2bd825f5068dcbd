// Package config handles smartassist configuration.
// Configuration lives in ~/.assist/config.json and can be overridden
// with ASSIST_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all smartassist configuration.
type Config struct {
	// BaseURL is the root of the backend HTTP API.
	BaseURL string `json:"base_url"`

	// WSURL is the root of the backend WebSocket endpoint. When empty it
	// is derived from BaseURL (http -> ws, https -> wss).
	WSURL string `json:"ws_url"`

	// PageSize for conversation history pagination.
	PageSize int `json:"page_size"`

	// Theme selects the color scheme: "auto", "light" or "dark".
	Theme string `json:"theme"`

	Logging LoggingConfig `json:"logging"`
}

// LoggingConfig controls file-based debug logging.
type LoggingConfig struct {
	// Debug enables logging. When false the logger is a nop.
	Debug bool `json:"debug"`

	// Path of the log file. Defaults to <config dir>/assist.log.
	Path string `json:"path"`

	// MaxSizeMB and MaxBackups control log rotation.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:  "https://libreconsulting.pythonanywhere.com",
		PageSize: 50,
		Theme:    "auto",
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Dir returns the smartassist config directory (~/.assist). Falls back
// to a relative .assist when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".assist"
	}
	return filepath.Join(home, ".assist")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads configuration from path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ASSIST_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("ASSIST_WS_URL"); v != "" {
		c.WSURL = v
	}
	if v := os.Getenv("ASSIST_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.Debug = b
		}
	}
	if v := os.Getenv("ASSIST_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.PageSize = n
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url: %q", c.BaseURL)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	switch c.Theme {
	case "auto", "light", "dark":
	default:
		return fmt.Errorf("invalid theme: %q (valid: auto, light, dark)", c.Theme)
	}
	return nil
}

// WebSocketURL returns the websocket base, deriving it from BaseURL
// when ws_url is not set explicitly.
func (c *Config) WebSocketURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String()
}

// LogPath returns the effective log file path.
func (c *Config) LogPath() string {
	if c.Logging.Path != "" {
		return c.Logging.Path
	}
	return filepath.Join(Dir(), "assist.log")
}
