package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultAppConfig(t *testing.T) {
	cfg := DefaultAppConfig()
	if cfg.Addr() != "0.0.0.0:8000" {
		t.Errorf("Addr = %q, want 0.0.0.0:8000", cfg.Addr())
	}
	if !cfg.IsDevelopment() {
		t.Error("default environment should be development")
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %s, want 30s", cfg.ShutdownTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfigEnvOverlay(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("SHUTDOWN_TIMEOUT", "45")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr = %q, want 127.0.0.1:9090", cfg.Addr())
	}
	if cfg.Environment != "production" || cfg.IsDevelopment() {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if cfg.DatabasePath != "/tmp/test.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.ShutdownTimeout != 45*time.Second {
		t.Errorf("ShutdownTimeout = %s, want 45s", cfg.ShutdownTimeout)
	}
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("port: 8080\nenvironment: testing\nshutdown_timeout_seconds: 10\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MCP_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Environment != "testing" {
		t.Errorf("Environment = %q, want testing", cfg.Environment)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %s, want 10s", cfg.ShutdownTimeout)
	}
	// Unset keys keep their defaults.
	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want default", cfg.Host)
	}

	t.Run("env wins over file", func(t *testing.T) {
		t.Setenv("PORT", "7070")
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Port != 7070 {
			t.Errorf("Port = %d, want 7070", cfg.Port)
		}
	})
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("MCP_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestAppConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"zero port", func(c *AppConfig) { c.Port = 0 }},
		{"port too large", func(c *AppConfig) { c.Port = 70000 }},
		{"empty database path", func(c *AppConfig) { c.DatabasePath = "" }},
		{"unknown environment", func(c *AppConfig) { c.Environment = "staging" }},
		{"zero shutdown timeout", func(c *AppConfig) { c.ShutdownTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAppConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
