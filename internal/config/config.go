// Package config provides configuration loading and persistence for ptyhubd.
//
// Configuration is loaded from:
// 1. ~/.ptyhubd/config.json (file)
// 2. Environment variables (override file values)
//
// Environment variables:
//   - PTYHUB_PORT: TCP port the HTTP/WebSocket server binds to
//   - PTYHUB_STATIC_DIR: directory containing the SPA assets served at "/"
//   - PTYHUB_MAX_WS_CLIENTS: maximum concurrent WebSocket subscribers
//   - PTYHUB_BATCH_MAX_BYTES: output batch flush size threshold
//   - PTYHUB_BATCH_INTERVAL_MS: output batch flush interval
//   - PTYHUB_TAIL_CAP_BYTES: exit-tail capture size
//   - PTYHUB_MAX_LINES: maximum lines kept in the exit tail
//   - PTYHUB_CONFIG_DIR: override config directory (for testing)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultPort is the TCP port the server binds to when none is configured.
const DefaultPort = 7777

// Config holds all configuration for ptyhubd.
type Config struct {
	// Port is the TCP port the HTTP/WebSocket server listens on.
	Port int `json:"port"`

	// StaticDir is the directory containing the SPA assets served at "/".
	// Empty means no static assets are served.
	StaticDir string `json:"static_dir,omitempty"`

	// MaxWSClients is the maximum number of concurrent WebSocket subscribers.
	MaxWSClients int `json:"max_ws_clients"`

	// BatchMaxBytes is the output batch flush size threshold, in bytes.
	BatchMaxBytes int `json:"batch_max_bytes"`

	// BatchIntervalMS is the output batch flush interval, in milliseconds.
	BatchIntervalMS int `json:"batch_interval_ms"`

	// TailCapBytes is the size of the exit-tail capture buffer, in bytes.
	TailCapBytes int `json:"tail_cap_bytes"`

	// MaxLines is the maximum number of lines kept in the exit tail.
	MaxLines int `json:"max_lines"`
}

// DefaultConfig returns configuration with the defaults from spec §4.2/§4.4.
func DefaultConfig() *Config {
	return &Config{
		Port:            DefaultPort,
		StaticDir:       "",
		MaxWSClients:    10,
		BatchMaxBytes:   64 * 1024,
		BatchIntervalMS: 8,
		TailCapBytes:    8 * 1024,
		MaxLines:        50,
	}
}

// ConfigDir returns the configuration directory path, creating it if necessary.
// Respects PTYHUB_CONFIG_DIR environment variable for testing.
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if testDir := os.Getenv("PTYHUB_CONFIG_DIR"); testDir != "" {
		if err := os.MkdirAll(testDir, 0700); err != nil {
			return "", fmt.Errorf("could not create config directory: %w", err)
		}
		return testDir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".ptyhubd")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("could not create config directory: %w", err)
	}

	return dir, nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration from file and applies environment variable overrides.
// Priority: environment variables > config file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// File missing or invalid is not an error — fall back to defaults.
	_ = cfg.loadFromFile()

	cfg.applyEnvOverrides()

	return cfg, nil
}

// loadFromFile attempts to load configuration from the config file.
func (c *Config) loadFromFile() error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, c)
}

// applyEnvOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("PTYHUB_PORT"); port != "" {
		if val, err := strconv.Atoi(port); err == nil {
			c.Port = val
		}
	}

	if staticDir := os.Getenv("PTYHUB_STATIC_DIR"); staticDir != "" {
		c.StaticDir = staticDir
	}

	if maxClients := os.Getenv("PTYHUB_MAX_WS_CLIENTS"); maxClients != "" {
		if val, err := strconv.Atoi(maxClients); err == nil {
			c.MaxWSClients = val
		}
	}

	if batchMax := os.Getenv("PTYHUB_BATCH_MAX_BYTES"); batchMax != "" {
		if val, err := strconv.Atoi(batchMax); err == nil {
			c.BatchMaxBytes = val
		}
	}

	if batchInterval := os.Getenv("PTYHUB_BATCH_INTERVAL_MS"); batchInterval != "" {
		if val, err := strconv.Atoi(batchInterval); err == nil {
			c.BatchIntervalMS = val
		}
	}

	if tailCap := os.Getenv("PTYHUB_TAIL_CAP_BYTES"); tailCap != "" {
		if val, err := strconv.Atoi(tailCap); err == nil {
			c.TailCapBytes = val
		}
	}

	if maxLines := os.Getenv("PTYHUB_MAX_LINES"); maxLines != "" {
		if val, err := strconv.Atoi(maxLines); err == nil {
			c.MaxLines = val
		}
	}
}

// Save writes configuration to the config file.
func (c *Config) Save() error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}

	return nil
}
