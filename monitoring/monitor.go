package monitoring

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// cleanupMinInterval rate-limits the age-horizon eviction pass.
const cleanupMinInterval = time.Hour

// diskCriticalPercent is the fixed disk-usage level treated as critical by
// health checks. CPU and memory thresholds come from Config.
const diskCriticalPercent = 90.0

// Monitor is the production monitoring backend organism. It composes:
//   - two ring buffers (events, metric samples) for bounded retention
//   - a batch queue flushed to the registered exporters
//   - a session table for per-session aggregates
//   - an optional background sampler for periodic system measurements
//
// All shared mutable state (buffers, queue, sessions) is guarded by one
// coarse mutex; reporting reads take snapshots under the same lock. Exporter
// I/O runs outside the lock, so LogEvent may block briefly when it triggers
// a flush.
//
// Usage:
//
//	mon, err := monitoring.New(monitoring.ConfigFromEnv(), logger)
//	if err != nil {
//	    return err
//	}
//	defer mon.Shutdown(context.Background())
//
//	mon.LogEvent(monitoring.Event{Kind: monitoring.KindAnalysisStart, Level: monitoring.LevelStandard})
type Monitor struct {
	cfg    Config
	log    *zap.Logger
	reader SystemReader

	mu          sync.Mutex
	events      *ring[Event]
	metrics     *ring[Metrics]
	queue       []Event
	sessions    sessionTable
	lastCleanup time.Time

	exporters []Exporter
	counter   atomic.Uint64
	sampler   *sampler
	startTime time.Time
}

// Option configures a Monitor at construction.
type Option func(*Monitor)

// WithExporter registers an additional export sink. Sinks receive batches in
// registration order.
func WithExporter(e Exporter) Option {
	return func(m *Monitor) {
		m.exporters = append(m.exporters, e)
	}
}

// WithSystemReader replaces the default gopsutil-backed reader.
// Primarily used by tests.
func WithSystemReader(r SystemReader) Option {
	return func(m *Monitor) {
		m.reader = r
	}
}

// New creates a Monitor from cfg, failing fast on invalid configuration.
// The file and console sinks implied by cfg are registered first, then any
// option-provided sinks. The background sampler starts only when
// cfg.SampleInterval is positive.
func New(cfg Config, log *zap.Logger, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitoring config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	m := &Monitor{
		cfg:       cfg,
		log:       log.Named("monitoring"),
		reader:    GopsutilReader{},
		events:    newRing[Event](cfg.MaxEvents),
		metrics:   newRing[Metrics](cfg.MetricCapacity()),
		sessions:  make(sessionTable),
		startTime: time.Now().UTC(),
	}

	if cfg.LogFilePath != "" {
		m.exporters = append(m.exporters, NewFileExporter(cfg.LogFilePath, cfg.RotateMB))
	}
	if cfg.ConsoleOutput {
		m.exporters = append(m.exporters, NewConsoleExporter())
	}
	for _, opt := range opts {
		opt(m)
	}

	if cfg.SampleInterval > 0 {
		m.sampler = newSampler(m, cfg.SampleInterval)
		m.sampler.start()
	}

	m.LogEvent(Event{Kind: KindSystemStart, Level: LevelMinimal})
	return m, nil
}

// GenerateEventID returns a process-unique, roughly time-ordered event id.
func (m *Monitor) GenerateEventID() string {
	return fmt.Sprintf("evt_%d_%04d", time.Now().UnixMilli(), m.counter.Add(1)%10000)
}

// LogEvent records one event: verbosity filter, retention append, session
// update, batch queue. When the queue reaches the batch size the whole batch
// is handed to every exporter and the queue cleared. Never returns an error;
// sink failures are logged and the batch dropped for that sink only.
func (m *Monitor) LogEvent(e Event) {
	if !e.ShouldLog(m.cfg.Level) {
		return
	}
	if e.ID == "" {
		e.ID = m.GenerateEventID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var batch []Event
	m.mu.Lock()
	m.events.Append(e)
	m.sessions.record(e)
	m.queue = append(m.queue, e)
	if len(m.queue) >= m.cfg.BatchSize {
		batch = m.queue
		m.queue = nil
	}
	m.mu.Unlock()

	if batch != nil {
		m.export(batch)
	}
}

// Flush hands any queued events to the exporters without waiting for a full
// batch.
func (m *Monitor) Flush() {
	m.mu.Lock()
	batch := m.queue
	m.queue = nil
	m.mu.Unlock()

	if len(batch) > 0 {
		m.export(batch)
	}
}

// export delivers a batch to every sink in registration order. At-most-once:
// a failed sink neither blocks the others nor gets the batch re-queued.
func (m *Monitor) export(batch []Event) {
	for _, exp := range m.exporters {
		if err := exp.ExportEvents(batch); err != nil {
			m.log.Error("event export failed",
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
		}
	}
}

// recordMetrics appends one sample to the bounded metric buffer.
func (m *Monitor) recordMetrics(sample Metrics) {
	m.mu.Lock()
	m.metrics.Append(sample)
	m.mu.Unlock()
}

// cleanup evicts metric samples older than the retention horizon. Rate
// limited to once per hour; capacity eviction on the event buffer is
// independent of this pass and never touches entries younger than the
// horizon.
func (m *Monitor) cleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastCleanup) < cleanupMinInterval {
		return
	}
	m.lastCleanup = now

	cutoff := now.Add(-time.Duration(m.cfg.RetentionHours) * time.Hour)
	removed := m.metrics.RemoveOldestWhile(func(sample Metrics) bool {
		return sample.Timestamp.Before(cutoff)
	})
	if removed > 0 {
		m.log.Info("metric cleanup completed",
			zap.Int("removed", removed),
			zap.Int("retained", m.metrics.Len()),
		)
	}
}

// metricsSnapshot reads the current system state, or nil when the reader
// fails. Reader failures never propagate to callers.
func (m *Monitor) metricsSnapshot() *Metrics {
	sample, err := m.reader.ReadSystemMetrics()
	if err != nil {
		m.log.Debug("system metrics unavailable", zap.Error(err))
		return nil
	}
	return &sample
}

// HealthCheck samples current system state and classifies it against the
// warning thresholds. The check itself is recorded as a health_check event.
// A failed reading degrades the status instead of returning an error.
func (m *Monitor) HealthCheck() Health {
	now := time.Now().UTC()
	sample, err := m.reader.ReadSystemMetrics()
	if err != nil {
		m.log.Warn("health check could not read system metrics", zap.Error(err))
		return Health{
			Status:    HealthDegraded,
			Warnings:  []string{fmt.Sprintf("system metrics unavailable: %v", err)},
			Timestamp: now,
		}
	}

	status := HealthHealthy
	var warnings []string
	if sample.CPUPercent > m.cfg.CPUWarningThreshold {
		status = HealthWarning
		warnings = append(warnings, fmt.Sprintf("High CPU usage: %.1f%%", sample.CPUPercent))
	}
	if sample.MemoryPercent > m.cfg.MemoryWarningThreshold {
		status = HealthCritical
		warnings = append(warnings, fmt.Sprintf("High memory usage: %.1f%%", sample.MemoryPercent))
	}
	if sample.DiskPercent > diskCriticalPercent {
		status = HealthCritical
		warnings = append(warnings, fmt.Sprintf("High disk usage: %.1f%%", sample.DiskPercent))
	}

	m.LogEvent(Event{
		Kind:      KindHealthCheck,
		Timestamp: now,
		Level:     LevelStandard,
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

// Summary returns aggregate statistics computed from a snapshot of the
// retention buffer. An empty sessionID yields global statistics.
func (m *Monitor) Summary(sessionID string) Summary {
	m.mu.Lock()
	events := m.events.Snapshot()
	sessions := m.sessions.clone()
	m.mu.Unlock()

	return summarize(events, sessions, sessionID)
}

// LatestMetrics returns the most recent buffered sample, if any.
func (m *Monitor) LatestMetrics() (Metrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics.Last()
}

// Shutdown stops the sampler (waiting for it to acknowledge cancellation),
// records the shutdown event, and flushes the pending batch. After Shutdown
// the Monitor must not be used.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.sampler != nil {
		m.sampler.stop()
	}

	m.LogEvent(Event{Kind: KindSystemShutdown, Level: LevelMinimal})
	m.Flush()

	for _, exp := range m.exporters {
		if closer, ok := exp.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				m.log.Error("exporter close failed", zap.Error(err))
			}
		}
	}

	m.log.Info("monitoring shutdown complete",
		zap.Duration("uptime", time.Since(m.startTime)),
	)
	return nil
}

// Verify Monitor implements the Backend interface.
var _ Backend = (*Monitor)(nil)
