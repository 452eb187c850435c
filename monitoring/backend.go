package monitoring

import (
	"context"
	"time"
)

// Backend is the monitoring surface exposed to the rest of the application.
// All operations are observational: they never mutate application data and a
// backend malfunction must never fail the caller's own work.
//
// There is exactly one production implementation (Monitor); LegacyLogger is
// the retired first-generation implementation kept for A/B comparison through
// Hybrid, which also satisfies this interface.
type Backend interface {
	// LogEvent records a single event. Never returns an error: internal
	// failures are contained and surfaced through the backend's own logging.
	LogEvent(e Event)

	// TrackOperation runs fn inside a scoped start/error/complete event
	// triple sharing one correlation id. fn's error is returned unmodified.
	TrackOperation(ctx context.Context, kind EventKind, opts TrackOptions, fn func(context.Context) error) error

	// HealthCheck samples current system state and classifies it.
	HealthCheck() Health

	// Summary returns aggregate statistics; an empty sessionID means global.
	Summary(sessionID string) Summary

	// Shutdown stops background work and flushes pending exports.
	Shutdown(ctx context.Context) error
}

// TrackOptions carries the optional context attached to a tracked operation's
// events. The zero value is valid.
type TrackOptions struct {
	Level       Level
	ProjectPath string
	FilePath    string
	SessionID   string
	Metadata    map[string]any
}

// Health statuses, ordered by severity.
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"

	// HealthDegraded means the check itself failed; the monitored system may
	// be fine but we cannot tell.
	HealthDegraded = "degraded"
)

// Health is the result of a health check.
type Health struct {
	Status    string    `json:"status"`
	Warnings  []string  `json:"warnings"`
	Metrics   *Metrics  `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is the analytics aggregate returned by Backend.Summary.
// Averages cover only the events carrying the relevant field.
type Summary struct {
	TotalEvents          int       `json:"total_events"`
	ErrorRatePercent     float64   `json:"error_rate"`
	AverageCPUPercent    float64   `json:"average_cpu_usage"`
	AverageMemoryPercent float64   `json:"average_memory_usage"`
	AverageDurationMS    float64   `json:"average_operation_duration_ms"`
	ActiveSessions       int       `json:"active_sessions"`
	LastEventTime        time.Time `json:"last_event_time"`

	// Session is populated when a session id was given and known.
	Session *SessionSummary `json:"session_stats,omitempty"`
}
