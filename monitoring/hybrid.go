package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mcp_analyzer/core"
)

// HybridConfig selects which backends a Hybrid drives. Both enabled is the
// migration configuration; Compare additionally collects per-stack timing.
type HybridConfig struct {
	UseNew  bool
	UseOld  bool
	Compare bool
}

// DefaultHybridConfig runs only the new backend with comparison off.
func DefaultHybridConfig() HybridConfig {
	return HybridConfig{UseNew: true}
}

// HybridConfigFromEnv reads the rollout switches from the environment.
func HybridConfigFromEnv() HybridConfig {
	cfg := DefaultHybridConfig()
	cfg.UseNew = core.ParseBoolEnv("MONITORING_USE_NEW", cfg.UseNew)
	cfg.UseOld = core.ParseBoolEnv("MONITORING_USE_OLD", cfg.UseOld)
	cfg.Compare = core.ParseBoolEnv("MONITORING_COMPARE", cfg.Compare)
	return cfg
}

// stackStats are the per-backend counters collected while Compare is on.
// Guarded by the owning Hybrid's mutex.
type stackStats struct {
	Events       int           `json:"events"`
	Errors       int           `json:"errors"`
	Dropped      int           `json:"dropped"`
	TotalLatency time.Duration `json:"-"`
}

func (s stackStats) avgLatencyMS() float64 {
	if s.Events == 0 {
		return 0
	}
	return float64(s.TotalLatency) / float64(s.Events) / float64(time.Millisecond)
}

func (s stackStats) errorRatePercent() float64 {
	if s.Events == 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.Events) * 100
}

// ComparisonReport summarizes a side-by-side run of both backends.
type ComparisonReport struct {
	NewEvents         int     `json:"new_events"`
	OldEvents         int     `json:"old_events"`
	NewDropped        int     `json:"new_dropped"`
	OldDropped        int     `json:"old_dropped"`
	NewErrorRate      float64 `json:"new_error_rate"`
	OldErrorRate      float64 `json:"old_error_rate"`
	NewAvgLatencyMS   float64 `json:"new_avg_latency_ms"`
	OldAvgLatencyMS   float64 `json:"old_avg_latency_ms"`
	FasterStack       string  `json:"faster_stack"`
	PercentageFaster  float64 `json:"percentage_faster"`
	LegacyEventsTotal int     `json:"legacy_events_total"`
}

// Hybrid fans every call out to the enabled backends, letting the two stacks
// run side by side against identical traffic during migration. The new
// backend is authoritative: its results are what callers see, while the
// legacy backend only mirrors. With Compare enabled each mirrored call is
// timed per stack and a ComparisonReport is available on demand and logged
// at shutdown.
type Hybrid struct {
	cfg    HybridConfig
	log    *zap.Logger
	modern *Monitor
	legacy *LegacyLogger

	mu       sync.Mutex
	newStats stackStats
	oldStats stackStats
}

// NewHybrid wires the enabled backends together. A nil backend whose switch
// is on is treated as disabled rather than an error, so partially constructed
// rollouts degrade instead of crashing.
func NewHybrid(cfg HybridConfig, log *zap.Logger, modern *Monitor, legacy *LegacyLogger) *Hybrid {
	if log == nil {
		log = zap.NewNop()
	}
	if modern == nil {
		cfg.UseNew = false
	}
	if legacy == nil {
		cfg.UseOld = false
	}
	return &Hybrid{
		cfg:    cfg,
		log:    log.Named("hybrid_monitoring"),
		modern: modern,
		legacy: legacy,
	}
}

// mapKindToLegacy translates a new-vocabulary kind into the legacy one.
// ok is false for kinds the legacy backend never had; those events are not
// mirrored and are counted as dropped instead of being silently renamed.
func mapKindToLegacy(kind EventKind) (EventKind, bool) {
	switch kind {
	case KindHealthCheck:
		return LegacyKindHealthCheck, true
	case KindPerformanceSample:
		return LegacyKindPerformanceMetric, true
	case KindSystemStart, KindSystemShutdown, KindMemoryWarning, KindCPUWarning:
		return "", false
	default:
		return kind, true
	}
}

// GenerateEventID delegates to the authoritative backend.
func (h *Hybrid) GenerateEventID() string {
	if h.cfg.UseNew {
		return h.modern.GenerateEventID()
	}
	if h.cfg.UseOld {
		return h.legacy.GenerateEventID()
	}
	return ""
}

func (h *Hybrid) metricsSnapshot() *Metrics {
	if h.cfg.UseNew {
		return h.modern.metricsSnapshot()
	}
	if h.cfg.UseOld {
		return h.legacy.metricsSnapshot()
	}
	return nil
}

// LogEvent records the event on every enabled backend. Legacy sees the event
// under its own kind vocabulary; untranslatable kinds are dropped and
// counted.
func (h *Hybrid) LogEvent(e Event) {
	if h.cfg.UseNew {
		start := time.Now()
		h.modern.LogEvent(e)
		h.observe(&h.newStats, e, time.Since(start), false)
	}
	if h.cfg.UseOld {
		legacyKind, ok := mapKindToLegacy(e.Kind)
		if !ok {
			h.observe(&h.oldStats, e, 0, true)
			return
		}
		mirrored := e
		mirrored.Kind = legacyKind
		start := time.Now()
		h.legacy.LogEvent(mirrored)
		h.observe(&h.oldStats, e, time.Since(start), false)
	}
}

// observe updates one stack's comparison counters. No-op unless Compare.
func (h *Hybrid) observe(stats *stackStats, e Event, latency time.Duration, dropped bool) {
	if !h.cfg.Compare {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if dropped {
		stats.Dropped++
		return
	}
	stats.Events++
	stats.TotalLatency += latency
	if e.Kind.IsError() {
		stats.Errors++
	}
}

// TrackOperation runs fn once, inside the scopes of every enabled backend.
// With both enabled the new backend's scope wraps the legacy one, so each
// stack records its own start/error/complete triple around the single
// execution and the caller still gets fn's error unmodified.
func (h *Hybrid) TrackOperation(ctx context.Context, kind EventKind, opts TrackOptions, fn func(context.Context) error) error {
	run := fn
	if h.cfg.UseOld {
		legacyKind, ok := mapKindToLegacy(kind)
		if ok {
			inner := run
			run = func(ctx context.Context) error {
				return h.legacy.TrackOperation(ctx, legacyKind, opts, inner)
			}
		}
	}
	if h.cfg.UseNew {
		return h.modern.TrackOperation(ctx, kind, opts, run)
	}
	return run(ctx)
}

// HealthCheck reports from the authoritative backend. When only legacy is
// enabled its classification is used instead.
func (h *Hybrid) HealthCheck() Health {
	if h.cfg.UseNew {
		return h.modern.HealthCheck()
	}
	if h.cfg.UseOld {
		return h.legacy.HealthCheck()
	}
	return Health{Status: HealthDegraded, Warnings: []string{"no monitoring backend enabled"}, Timestamp: time.Now().UTC()}
}

// Summary reports from the authoritative backend.
func (h *Hybrid) Summary(sessionID string) Summary {
	if h.cfg.UseNew {
		return h.modern.Summary(sessionID)
	}
	if h.cfg.UseOld {
		return h.legacy.Summary(sessionID)
	}
	return Summary{}
}

// Report returns the current comparison statistics. Meaningful only when
// Compare is on and both backends are enabled.
func (h *Hybrid) Report() ComparisonReport {
	h.mu.Lock()
	newStats := h.newStats
	oldStats := h.oldStats
	h.mu.Unlock()

	report := ComparisonReport{
		NewEvents:       newStats.Events,
		OldEvents:       oldStats.Events,
		NewDropped:      newStats.Dropped,
		OldDropped:      oldStats.Dropped,
		NewErrorRate:    newStats.errorRatePercent(),
		OldErrorRate:    oldStats.errorRatePercent(),
		NewAvgLatencyMS: newStats.avgLatencyMS(),
		OldAvgLatencyMS: oldStats.avgLatencyMS(),
	}
	if h.legacy != nil {
		report.LegacyEventsTotal = h.legacy.EventCount()
	}

	newAvg, oldAvg := report.NewAvgLatencyMS, report.OldAvgLatencyMS
	switch {
	case newStats.Events == 0 || oldStats.Events == 0:
		report.FasterStack = "insufficient data"
	case newAvg < oldAvg && oldAvg > 0:
		report.FasterStack = "new"
		report.PercentageFaster = (oldAvg - newAvg) / oldAvg * 100
	case oldAvg < newAvg && newAvg > 0:
		report.FasterStack = "old"
		report.PercentageFaster = (newAvg - oldAvg) / newAvg * 100
	default:
		report.FasterStack = "even"
	}
	return report
}

// Shutdown stops every enabled backend, logging the final comparison report
// first when Compare is on. The first backend error is returned; both
// backends are always shut down.
func (h *Hybrid) Shutdown(ctx context.Context) error {
	if h.cfg.Compare {
		report := h.Report()
		h.log.Info("monitoring comparison report",
			zap.Int("new_events", report.NewEvents),
			zap.Int("old_events", report.OldEvents),
			zap.Int("old_dropped", report.OldDropped),
			zap.Float64("new_avg_latency_ms", report.NewAvgLatencyMS),
			zap.Float64("old_avg_latency_ms", report.OldAvgLatencyMS),
			zap.String("faster_stack", report.FasterStack),
			zap.Float64("percentage_faster", report.PercentageFaster),
		)
	}

	var firstErr error
	if h.cfg.UseNew {
		if err := h.modern.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if h.cfg.UseOld {
		if err := h.legacy.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Verify Hybrid implements the Backend interface.
var _ Backend = (*Hybrid)(nil)
