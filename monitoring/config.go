package monitoring

import (
	"fmt"
	"time"

	"mcp_analyzer/core"
)

// Config is the process-wide monitoring configuration. Immutable after
// construction; Validate rejects bad values before any event can be logged.
type Config struct {
	// Level is the configured verbosity: events above it are suppressed.
	Level Level

	// MaxEvents caps the in-memory event retention buffer. The metric buffer
	// holds MaxEvents/10 samples (minimum 1).
	MaxEvents int

	// BatchSize is the number of queued events that triggers an export flush.
	BatchSize int

	// RetentionHours is the age horizon for metric samples; older samples are
	// evicted by the cleanup pass.
	RetentionHours int

	// SampleInterval is the background sampler cadence. Zero disables
	// background sampling entirely.
	SampleInterval time.Duration

	// AutoCleanup enables the horizon-based eviction pass after each sample.
	AutoCleanup bool

	// LogFilePath enables the NDJSON file sink when non-empty.
	LogFilePath string

	// RotateMB is the file sink size threshold in megabytes before rotation.
	RotateMB int

	// ConsoleOutput enables the colored console sink.
	ConsoleOutput bool

	// MemoryWarningThreshold and CPUWarningThreshold are percentages in
	// [0,100]; crossing them makes the sampler emit warning events.
	MemoryWarningThreshold float64
	CPUWarningThreshold    float64
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		Level:                  LevelStandard,
		MaxEvents:              1000,
		BatchSize:              50,
		RetentionHours:         24,
		SampleInterval:         30 * time.Second,
		AutoCleanup:            true,
		RotateMB:               100,
		ConsoleOutput:          true,
		MemoryWarningThreshold: 85.0,
		CPUWarningThreshold:    80.0,
	}
}

// DevelopmentConfig returns the development preset: verbose, small buffers,
// relaxed sampling.
func DevelopmentConfig(logFile string) Config {
	cfg := DefaultConfig()
	cfg.Level = LevelVerbose
	cfg.MaxEvents = 500
	cfg.BatchSize = 25
	cfg.SampleInterval = 60 * time.Second
	cfg.LogFilePath = logFile
	cfg.ConsoleOutput = true
	return cfg
}

// ProductionConfig returns the production preset: standard verbosity, large
// buffers, no console echo.
func ProductionConfig(logFile string) Config {
	cfg := DefaultConfig()
	cfg.Level = LevelStandard
	cfg.MaxEvents = 2000
	cfg.BatchSize = 100
	cfg.SampleInterval = 30 * time.Second
	cfg.LogFilePath = logFile
	cfg.ConsoleOutput = false
	cfg.AutoCleanup = true
	return cfg
}

// TestingConfig returns the testing preset: minimal verbosity, tiny buffers,
// background sampling off, no sinks.
func TestingConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = LevelMinimal
	cfg.MaxEvents = 100
	cfg.BatchSize = 10
	cfg.SampleInterval = 0
	cfg.LogFilePath = ""
	cfg.ConsoleOutput = false
	return cfg
}

// ConfigForEnvironment returns the preset for an environment selector:
// "production", "testing", or (default) "development".
func ConfigForEnvironment(environment, logFile string) Config {
	switch environment {
	case "production":
		if logFile == "" {
			logFile = "logs/mcp_analyzer.log"
		}
		return ProductionConfig(logFile)
	case "testing":
		return TestingConfig()
	default:
		if logFile == "" {
			logFile = "logs/mcp_analyzer_dev.log"
		}
		return DevelopmentConfig(logFile)
	}
}

// ConfigFromEnv builds a Config from MONITORING_* environment variables,
// starting from the defaults.
func ConfigFromEnv() Config {
	return DefaultConfig().OverlayEnv()
}

// OverlayEnv returns a copy of c with any set MONITORING_* environment
// variables applied on top.
func (c Config) OverlayEnv() Config {
	cfg := c
	cfg.Level = ParseEventLevel(core.GetEnvOrDefault("MONITORING_LOG_LEVEL", ""), cfg.Level)
	cfg.MaxEvents = core.ParseIntEnv("MONITORING_MAX_EVENTS", cfg.MaxEvents)
	cfg.BatchSize = core.ParseIntEnv("MONITORING_BATCH_SIZE", cfg.BatchSize)
	cfg.RetentionHours = core.ParseIntEnv("MONITORING_RETENTION_HOURS", cfg.RetentionHours)
	cfg.SampleInterval = core.ParseDurationEnv("MONITORING_SAMPLE_INTERVAL", cfg.SampleInterval)
	cfg.AutoCleanup = core.ParseBoolEnv("MONITORING_AUTO_CLEANUP", cfg.AutoCleanup)
	cfg.LogFilePath = core.GetEnvOrDefault("MONITORING_LOG_FILE", cfg.LogFilePath)
	cfg.ConsoleOutput = core.ParseBoolEnv("MONITORING_CONSOLE", cfg.ConsoleOutput)
	cfg.MemoryWarningThreshold = core.ParseFloat64Env("MONITORING_MEMORY_THRESHOLD", cfg.MemoryWarningThreshold)
	cfg.CPUWarningThreshold = core.ParseFloat64Env("MONITORING_CPU_THRESHOLD", cfg.CPUWarningThreshold)
	return cfg
}

// Validate rejects configurations that would make the buffers or exporter
// misbehave. Called at construction so a bad value fails fast rather than at
// insert time.
func (c Config) Validate() error {
	if c.MaxEvents <= 0 {
		return fmt.Errorf("max events must be positive, got %d", c.MaxEvents)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.RetentionHours <= 0 {
		return fmt.Errorf("retention hours must be positive, got %d", c.RetentionHours)
	}
	if c.SampleInterval < 0 {
		return fmt.Errorf("sample interval must not be negative, got %s", c.SampleInterval)
	}
	if c.MemoryWarningThreshold < 0 || c.MemoryWarningThreshold > 100 {
		return fmt.Errorf("memory warning threshold must be in [0,100], got %.1f", c.MemoryWarningThreshold)
	}
	if c.CPUWarningThreshold < 0 || c.CPUWarningThreshold > 100 {
		return fmt.Errorf("cpu warning threshold must be in [0,100], got %.1f", c.CPUWarningThreshold)
	}
	return nil
}

// MetricCapacity derives the metric buffer size from MaxEvents.
func (c Config) MetricCapacity() int {
	capacity := c.MaxEvents / 10
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}
