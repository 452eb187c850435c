package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mcp_analyzer/core"
)

// AppConfig is the process configuration. Values come from defaults, then an
// optional YAML file named by MCP_CONFIG_FILE, then environment variables.
type AppConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Environment  string `yaml:"environment"`
	DatabasePath string `yaml:"database_path"`
	LogFile      string `yaml:"log_file"`

	// ShutdownTimeoutSeconds is the YAML knob; ShutdownTimeout is the
	// resolved value used everywhere else.
	ShutdownTimeoutSeconds int           `yaml:"shutdown_timeout_seconds"`
	ShutdownTimeout        time.Duration `yaml:"-"`
}

// DefaultAppConfig returns the baseline configuration.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Host:            "0.0.0.0",
		Port:            8000,
		Environment:     "development",
		DatabasePath:    "code_analyzer.db",
		LogFile:         "logs/mcp_analyzer.log",
		ShutdownTimeout: 30 * time.Second,
	}
}

// LoadConfig builds the effective configuration: defaults, YAML overlay,
// environment overlay, then validation.
func LoadConfig() (AppConfig, error) {
	cfg := DefaultAppConfig()

	if path := os.Getenv("MCP_CONFIG_FILE"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
		if cfg.ShutdownTimeoutSeconds > 0 {
			cfg.ShutdownTimeout = time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
		}
	}

	cfg.Host = core.GetEnvOrDefault("HOST", cfg.Host)
	cfg.Port = core.ParseIntEnv("PORT", cfg.Port)
	cfg.Environment = core.GetEnvOrDefault("ENVIRONMENT", cfg.Environment)
	cfg.DatabasePath = core.GetEnvOrDefault("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogFile = core.GetEnvOrDefault("LOG_FILE", cfg.LogFile)
	cfg.ShutdownTimeout = core.ParseDurationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c AppConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in (0,65535], got %d", c.Port)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	switch c.Environment {
	case "development", "production", "testing":
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

// Addr returns the listen address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment reports whether the development environment is selected.
func (c AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}
