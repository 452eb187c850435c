// Package logging provides the application-wide structured logger: a zap
// logger teed to a human-readable console core and a rotating JSON file core.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap.Logger configured for the given environment.
//
// Development mode uses a colored console encoder at debug level; production
// uses JSON console output at info level. Both modes additionally write JSON
// to logFilePath with size-based rotation (see file_writer.go). An empty
// logFilePath disables the file core.
func NewLogger(isDevelopment bool, logFilePath string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if isDevelopment {
		level = zapcore.DebugLevel
	}
	level = ParseLevel(os.Getenv("MCP_LOG_LEVEL"), level)

	core := buildCore(level, logFilePath, isDevelopment, zapcore.AddSync(os.Stdout))
	return zap.New(core, zap.AddCaller()), nil
}

// NewLoggerWithWriter builds a logger against an arbitrary console writer.
// Used by tests to capture output.
func NewLoggerWithWriter(level zapcore.Level, isDevelopment bool, console zapcore.WriteSyncer) *zap.Logger {
	return zap.New(buildCore(level, "", isDevelopment, console))
}

func buildCore(level zapcore.Level, logFilePath string, isDevelopment bool, console zapcore.WriteSyncer) zapcore.Core {
	var consoleEncoder zapcore.Encoder
	if isDevelopment {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, console, level)

	if logFilePath == "" {
		return consoleCore
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(NewEncoderConfig()),
		NewFileWriter(logFilePath, DefaultFileWriterConfig()),
		level,
	)
	return zapcore.NewTee(consoleCore, fileCore)
}

// ParseLevel parses a zap level name, case-insensitively.
// Returns defaultLevel for empty or unrecognized input.
func ParseLevel(levelStr string, defaultLevel zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return defaultLevel
	}
}
