// Package monitoring provides the event-monitoring core: pure data types for
// events and sampled system metrics, bounded in-memory retention, batched
// export to sinks, scoped operation tracking, and background sampling.
// This file contains atom-level type definitions with no behavior beyond
// serialization and the verbosity filter.
package monitoring

import (
	"math"
	"strings"
	"time"
)

// EventKind identifies what an event describes.
type EventKind string

// Event kinds observed by the system.
const (
	// Lifecycle events
	KindSystemStart    EventKind = "system_start"
	KindSystemShutdown EventKind = "system_shutdown"
	KindHealthCheck    EventKind = "health_check"

	// Analysis events
	KindAnalysisStart    EventKind = "analysis_start"
	KindAnalysisComplete EventKind = "analysis_complete"
	KindAnalysisError    EventKind = "analysis_error"

	// File events
	KindFileScanStart        EventKind = "file_scan_start"
	KindFileScanComplete     EventKind = "file_scan_complete"
	KindFileAnalysisStart    EventKind = "file_analysis_start"
	KindFileAnalysisComplete EventKind = "file_analysis_complete"

	// AI events
	KindAIRequestStart    EventKind = "ai_request_start"
	KindAIRequestComplete EventKind = "ai_request_complete"
	KindAIRequestError    EventKind = "ai_request_error"

	// Sampler events
	KindPerformanceSample EventKind = "performance_sample"
	KindMemoryWarning     EventKind = "memory_warning"
	KindCPUWarning        EventKind = "cpu_warning"
)

// IsError reports whether the kind describes a failure.
// Session error counters key off this, matching the historical
// "name contains error" rule.
func (k EventKind) IsError() bool {
	return strings.Contains(string(k), "error")
}

// Level is the verbosity level attached to an event and configured on a
// backend. Levels form a fixed total order: minimal < standard < detailed <
// verbose < debug. The configured level says how much detail to surface, so a
// minimal-level event passes every filter while debug-level events surface
// only when the backend is configured at debug.
type Level int

const (
	LevelMinimal Level = iota
	LevelStandard
	LevelDetailed
	LevelVerbose
	LevelDebug
)

// String returns the level name used in configuration and exports.
func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelDetailed:
		return "detailed"
	case LevelVerbose:
		return "verbose"
	case LevelDebug:
		return "debug"
	default:
		return "standard"
	}
}

// ParseEventLevel parses a level name, case-insensitively.
// Returns defaultLevel for empty or unrecognized input.
func ParseEventLevel(s string, defaultLevel Level) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return LevelMinimal
	case "standard":
		return LevelStandard
	case "detailed":
		return LevelDetailed
	case "verbose":
		return LevelVerbose
	case "debug":
		return LevelDebug
	default:
		return defaultLevel
	}
}

// ShouldLog reports whether an event at eventLevel passes a backend configured
// at configuredLevel. Pure function: true iff rank(event) <= rank(configured).
func ShouldLog(eventLevel, configuredLevel Level) bool {
	return eventLevel <= configuredLevel
}

// Metrics is one sampled system measurement. Percentages are in [0,100];
// ResponseTimeMS is optional and zero means "not measured".
// Records are immutable once buffered: serialization builds a fresh map and
// never touches the record's fields.
type Metrics struct {
	Timestamp         time.Time
	CPUPercent        float64
	MemoryPercent     float64
	MemoryUsedMB      float64
	DiskPercent       float64
	ActiveConnections int
	ResponseTimeMS    float64
}

// Compact returns the wire form of the sample: epoch-seconds timestamp and
// numeric fields rounded to two decimals. ResponseTimeMS is omitted when
// unset.
func (m Metrics) Compact() map[string]any {
	data := map[string]any{
		"ts":     epochSeconds(m.Timestamp),
		"cpu":    round2(m.CPUPercent),
		"mem":    round2(m.MemoryPercent),
		"mem_mb": round2(m.MemoryUsedMB),
		"disk":   round2(m.DiskPercent),
		"conn":   m.ActiveConnections,
	}
	if m.ResponseTimeMS > 0 {
		data["rt"] = round2(m.ResponseTimeMS)
	}
	return data
}

// Event is one observed occurrence. Constructed at occurrence time, immutable
// thereafter; the zero values of optional fields mean "absent" and are
// omitted from the wire form.
type Event struct {
	ID           string
	Kind         EventKind
	Timestamp    time.Time
	Level        Level
	ProjectPath  string
	FilePath     string
	DurationMS   float64
	ErrorMessage string
	Metadata     map[string]any
	SessionID    string

	// Metrics is an optional system snapshot attached by the operation
	// tracker and health checks.
	Metrics *Metrics
}

// ShouldLog reports whether the event passes a backend configured at the
// given level.
func (e Event) ShouldLog(configuredLevel Level) bool {
	return ShouldLog(e.Level, configuredLevel)
}

// Compact returns the wire form of the event: one flat map with absent
// fields omitted entirely, matching the NDJSON sink format.
func (e Event) Compact() map[string]any {
	data := map[string]any{
		"id":   e.ID,
		"type": string(e.Kind),
		"ts":   epochSeconds(e.Timestamp),
	}
	if e.ProjectPath != "" {
		data["project"] = e.ProjectPath
	}
	if e.FilePath != "" {
		data["file"] = e.FilePath
	}
	if e.DurationMS > 0 {
		data["duration"] = round2(e.DurationMS)
	}
	if e.ErrorMessage != "" {
		data["error"] = e.ErrorMessage
	}
	if len(e.Metadata) > 0 {
		data["meta"] = e.Metadata
	}
	if e.SessionID != "" {
		data["session"] = e.SessionID
	}
	if e.Metrics != nil {
		data["performance"] = e.Metrics.Compact()
	}
	return data
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// epochSeconds keeps millisecond precision, enough to reconstruct the
// original instant well within a second.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}
