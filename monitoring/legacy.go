package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Legacy event-kind vocabulary. The first-generation logger named two kinds
// differently and had no system-lifecycle or threshold-warning kinds at all;
// the hybrid layer translates between the vocabularies (see hybrid.go).
const (
	LegacyKindHealthCheck       EventKind = "system_health_check"
	LegacyKindPerformanceMetric EventKind = "performance_metric"
)

// Legacy health thresholds, hard-coded in the first-generation logger.
const (
	legacyCPUWarnPercent      = 80.0
	legacyMemoryCriticalPct   = 85.0
	legacyDiskCriticalPercent = 90.0
)

// LegacyLogger is the retired first-generation backend, kept operational for
// side-by-side comparison through Hybrid. It differs from Monitor in every
// dimension the rewrite targeted: no verbosity filter, no batching (every
// event is written through to the log immediately), and an unbounded event
// slice instead of a ring buffer. Do not use it standalone in production.
type LegacyLogger struct {
	log    *zap.Logger
	reader SystemReader

	mu       sync.Mutex
	events   []Event
	sessions sessionTable
}

// NewLegacyLogger creates the legacy backend writing through the given
// logger.
func NewLegacyLogger(log *zap.Logger, reader SystemReader) *LegacyLogger {
	if log == nil {
		log = zap.NewNop()
	}
	if reader == nil {
		reader = GopsutilReader{}
	}
	return &LegacyLogger{
		log:      log.Named("legacy_monitoring"),
		reader:   reader,
		sessions: make(sessionTable),
	}
}

// GenerateEventID returns an id in the legacy format: millisecond timestamp
// plus the current event count.
func (l *LegacyLogger) GenerateEventID() string {
	l.mu.Lock()
	count := len(l.events)
	l.mu.Unlock()
	return fmt.Sprintf("evt_%d_%d", time.Now().UnixMilli(), count)
}

// LogEvent appends the event and immediately writes one structured line.
// No filtering, no batching: the legacy behavior under test.
func (l *LegacyLogger) LogEvent(e Event) {
	if e.ID == "" {
		e.ID = l.GenerateEventID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	l.events = append(l.events, e)
	l.sessions.record(e)
	l.mu.Unlock()

	line, err := encodeCompact(e.Compact())
	if err != nil {
		l.log.Error("legacy event encode failed", zap.String("event_id", e.ID), zap.Error(err))
		return
	}
	l.log.Info(fmt.Sprintf("EVENT | %s", line))
}

// TrackOperation runs fn inside the shared scope state machine.
func (l *LegacyLogger) TrackOperation(ctx context.Context, kind EventKind, opts TrackOptions, fn func(context.Context) error) error {
	return track(ctx, l, kind, opts, fn)
}

func (l *LegacyLogger) metricsSnapshot() *Metrics {
	sample, err := l.reader.ReadSystemMetrics()
	if err != nil {
		l.log.Debug("system metrics unavailable", zap.Error(err))
		return nil
	}
	return &sample
}

// HealthCheck classifies current system state against the legacy fixed
// thresholds and records a legacy health-check event.
func (l *LegacyLogger) HealthCheck() Health {
	now := time.Now().UTC()
	sample, err := l.reader.ReadSystemMetrics()
	if err != nil {
		return Health{
			Status:    HealthDegraded,
			Warnings:  []string{fmt.Sprintf("system metrics unavailable: %v", err)},
			Timestamp: now,
		}
	}

	status := HealthHealthy
	var warnings []string
	if sample.CPUPercent > legacyCPUWarnPercent {
		status = HealthWarning
		warnings = append(warnings, fmt.Sprintf("High CPU usage: %.1f%%", sample.CPUPercent))
	}
	if sample.MemoryPercent > legacyMemoryCriticalPct {
		status = HealthCritical
		warnings = append(warnings, fmt.Sprintf("High memory usage: %.1f%%", sample.MemoryPercent))
	}
	if sample.DiskPercent > legacyDiskCriticalPercent {
		status = HealthCritical
		warnings = append(warnings, fmt.Sprintf("High disk usage: %.1f%%", sample.DiskPercent))
	}

	l.LogEvent(Event{
		Kind:      LegacyKindHealthCheck,
		Timestamp: now,
		Metadata: map[string]any{
			"health_status": status,
			"warnings":      warnings,
		},
		Metrics: &sample,
	})

	return Health{
		Status:    status,
		Warnings:  warnings,
		Metrics:   &sample,
		Timestamp: now,
	}
}

// Summary returns aggregate statistics over every event ever logged.
func (l *LegacyLogger) Summary(sessionID string) Summary {
	l.mu.Lock()
	events := make([]Event, len(l.events))
	copy(events, l.events)
	sessions := l.sessions.clone()
	l.mu.Unlock()

	return summarize(events, sessions, sessionID)
}

// Shutdown flushes the underlying logger. The legacy backend has no
// background work to stop.
func (l *LegacyLogger) Shutdown(ctx context.Context) error {
	// Sync failures on stdout sinks are expected and not actionable.
	_ = l.log.Sync()
	return nil
}

// EventCount reports how many events the legacy backend has accumulated.
// The slice grows without bound; the comparison report uses this to show the
// cost of the legacy design.
func (l *LegacyLogger) EventCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Verify LegacyLogger implements the Backend interface.
var _ Backend = (*LegacyLogger)(nil)
