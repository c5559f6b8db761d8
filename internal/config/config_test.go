package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// setupTestEnv creates a temporary config directory and clears env vars.
// Returns cleanup function to restore state.
func setupTestEnv(t *testing.T) func() {
	t.Helper()

	origConfigDir := os.Getenv("PTYHUB_CONFIG_DIR")
	origPort := os.Getenv("PTYHUB_PORT")
	origStaticDir := os.Getenv("PTYHUB_STATIC_DIR")
	origMaxClients := os.Getenv("PTYHUB_MAX_WS_CLIENTS")
	origBatchMax := os.Getenv("PTYHUB_BATCH_MAX_BYTES")
	origBatchInterval := os.Getenv("PTYHUB_BATCH_INTERVAL_MS")
	origTailCap := os.Getenv("PTYHUB_TAIL_CAP_BYTES")
	origMaxLines := os.Getenv("PTYHUB_MAX_LINES")

	tmpDir := t.TempDir()
	os.Setenv("PTYHUB_CONFIG_DIR", tmpDir)

	os.Unsetenv("PTYHUB_PORT")
	os.Unsetenv("PTYHUB_STATIC_DIR")
	os.Unsetenv("PTYHUB_MAX_WS_CLIENTS")
	os.Unsetenv("PTYHUB_BATCH_MAX_BYTES")
	os.Unsetenv("PTYHUB_BATCH_INTERVAL_MS")
	os.Unsetenv("PTYHUB_TAIL_CAP_BYTES")
	os.Unsetenv("PTYHUB_MAX_LINES")

	return func() {
		os.Setenv("PTYHUB_CONFIG_DIR", origConfigDir)
		if origPort != "" {
			os.Setenv("PTYHUB_PORT", origPort)
		}
		if origStaticDir != "" {
			os.Setenv("PTYHUB_STATIC_DIR", origStaticDir)
		}
		if origMaxClients != "" {
			os.Setenv("PTYHUB_MAX_WS_CLIENTS", origMaxClients)
		}
		if origBatchMax != "" {
			os.Setenv("PTYHUB_BATCH_MAX_BYTES", origBatchMax)
		}
		if origBatchInterval != "" {
			os.Setenv("PTYHUB_BATCH_INTERVAL_MS", origBatchInterval)
		}
		if origTailCap != "" {
			os.Setenv("PTYHUB_TAIL_CAP_BYTES", origTailCap)
		}
		if origMaxLines != "" {
			os.Setenv("PTYHUB_MAX_LINES", origMaxLines)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != 7777 {
		t.Errorf("Port = %d, want %d", cfg.Port, 7777)
	}
	if cfg.MaxWSClients != 10 {
		t.Errorf("MaxWSClients = %d, want %d", cfg.MaxWSClients, 10)
	}
	if cfg.BatchMaxBytes != 64*1024 {
		t.Errorf("BatchMaxBytes = %d, want %d", cfg.BatchMaxBytes, 64*1024)
	}
	if cfg.BatchIntervalMS != 8 {
		t.Errorf("BatchIntervalMS = %d, want %d", cfg.BatchIntervalMS, 8)
	}
	if cfg.TailCapBytes != 8*1024 {
		t.Errorf("TailCapBytes = %d, want %d", cfg.TailCapBytes, 8*1024)
	}
	if cfg.MaxLines != 50 {
		t.Errorf("MaxLines = %d, want %d", cfg.MaxLines, 50)
	}
	if cfg.StaticDir != "" {
		t.Errorf("StaticDir = %q, want empty", cfg.StaticDir)
	}
}

func TestConfigSerialization(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StaticDir = "/var/lib/ptyhubd/static"
	cfg.Port = 9000

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if loaded.Port != cfg.Port {
		t.Errorf("Port = %d, want %d", loaded.Port, cfg.Port)
	}
	if loaded.StaticDir != cfg.StaticDir {
		t.Errorf("StaticDir = %q, want %q", loaded.StaticDir, cfg.StaticDir)
	}
}

func TestLoadFromFile(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	configPath, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath() failed: %v", err)
	}

	fileConfig := &Config{
		Port:            9001,
		StaticDir:       "/custom/static",
		MaxWSClients:    5,
		BatchMaxBytes:   32 * 1024,
		BatchIntervalMS: 16,
		TailCapBytes:    4 * 1024,
		MaxLines:        25,
	}

	data, err := json.MarshalIndent(fileConfig, "", "  ")
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != 9001 {
		t.Errorf("Port = %d, want %d", cfg.Port, 9001)
	}
	if cfg.StaticDir != "/custom/static" {
		t.Errorf("StaticDir = %q, want %q", cfg.StaticDir, "/custom/static")
	}
	if cfg.MaxWSClients != 5 {
		t.Errorf("MaxWSClients = %d, want %d", cfg.MaxWSClients, 5)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	configPath, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath() failed: %v", err)
	}

	fileConfig := &Config{
		Port:         9001,
		MaxWSClients: 5,
	}

	data, _ := json.MarshalIndent(fileConfig, "", "  ")
	os.WriteFile(configPath, data, 0600)

	os.Setenv("PTYHUB_PORT", "9002")
	os.Setenv("PTYHUB_MAX_WS_CLIENTS", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != 9002 {
		t.Errorf("Port = %d, want %d (env override)", cfg.Port, 9002)
	}
	if cfg.MaxWSClients != 15 {
		t.Errorf("MaxWSClients = %d, want %d (env override)", cfg.MaxWSClients, 15)
	}
}

func TestAllEnvOverrides(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PTYHUB_PORT", "8080")
	os.Setenv("PTYHUB_STATIC_DIR", "/env/static")
	os.Setenv("PTYHUB_MAX_WS_CLIENTS", "20")
	os.Setenv("PTYHUB_BATCH_MAX_BYTES", "1024")
	os.Setenv("PTYHUB_BATCH_INTERVAL_MS", "4")
	os.Setenv("PTYHUB_TAIL_CAP_BYTES", "2048")
	os.Setenv("PTYHUB_MAX_LINES", "100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want %d", cfg.Port, 8080)
	}
	if cfg.StaticDir != "/env/static" {
		t.Errorf("StaticDir = %q, want %q", cfg.StaticDir, "/env/static")
	}
	if cfg.MaxWSClients != 20 {
		t.Errorf("MaxWSClients = %d, want %d", cfg.MaxWSClients, 20)
	}
	if cfg.BatchMaxBytes != 1024 {
		t.Errorf("BatchMaxBytes = %d, want %d", cfg.BatchMaxBytes, 1024)
	}
	if cfg.BatchIntervalMS != 4 {
		t.Errorf("BatchIntervalMS = %d, want %d", cfg.BatchIntervalMS, 4)
	}
	if cfg.TailCapBytes != 2048 {
		t.Errorf("TailCapBytes = %d, want %d", cfg.TailCapBytes, 2048)
	}
	if cfg.MaxLines != 100 {
		t.Errorf("MaxLines = %d, want %d", cfg.MaxLines, 100)
	}
}

func TestSaveAndLoad(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg := DefaultConfig()
	cfg.StaticDir = "/saved/static"
	cfg.Port = 9500

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if loaded.StaticDir != "/saved/static" {
		t.Errorf("StaticDir = %q, want %q", loaded.StaticDir, "/saved/static")
	}
	if loaded.Port != 9500 {
		t.Errorf("Port = %d, want %d", loaded.Port, 9500)
	}
}

func TestConfigDirOverride(t *testing.T) {
	tmpDir := t.TempDir()
	customDir := filepath.Join(tmpDir, "custom_config")

	os.Setenv("PTYHUB_CONFIG_DIR", customDir)
	defer os.Unsetenv("PTYHUB_CONFIG_DIR")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() failed: %v", err)
	}

	if dir != customDir {
		t.Errorf("ConfigDir() = %q, want %q", dir, customDir)
	}

	if _, err := os.Stat(customDir); os.IsNotExist(err) {
		t.Errorf("Config directory was not created")
	}
}

func TestLoadWithNoFile(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != 7777 {
		t.Errorf("Port = %d, want default 7777", cfg.Port)
	}
	if cfg.MaxWSClients != 10 {
		t.Errorf("MaxWSClients = %d, want default 10", cfg.MaxWSClients)
	}
}

func TestInvalidEnvVarsIgnored(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PTYHUB_PORT", "not_a_number")
	os.Setenv("PTYHUB_MAX_WS_CLIENTS", "invalid")
	os.Setenv("PTYHUB_BATCH_MAX_BYTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != 7777 {
		t.Errorf("Port = %d, want default 7777 (invalid env ignored)", cfg.Port)
	}
	if cfg.MaxWSClients != 10 {
		t.Errorf("MaxWSClients = %d, want default 10 (invalid env ignored)", cfg.MaxWSClients)
	}
	if cfg.BatchMaxBytes != 64*1024 {
		t.Errorf("BatchMaxBytes = %d, want default (empty env ignored)", cfg.BatchMaxBytes)
	}
}
