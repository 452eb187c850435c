package monitoring

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLegacyLoggerAccumulatesUnbounded(t *testing.T) {
	l := NewLegacyLogger(nil, &stubReader{})

	for i := 0; i < 500; i++ {
		l.LogEvent(Event{Kind: KindAnalysisStart})
	}
	if got := l.EventCount(); got != 500 {
		t.Errorf("EventCount = %d, want 500 (legacy keeps everything)", got)
	}
}

func TestLegacyLoggerIgnoresVerbosity(t *testing.T) {
	l := NewLegacyLogger(nil, &stubReader{})

	// The legacy backend predates the verbosity filter: every event lands.
	l.LogEvent(Event{Kind: KindAnalysisStart, Level: LevelDebug})
	l.LogEvent(Event{Kind: KindAnalysisStart, Level: LevelMinimal})
	if got := l.EventCount(); got != 2 {
		t.Errorf("EventCount = %d, want 2", got)
	}
}

func TestLegacyGenerateEventID(t *testing.T) {
	l := NewLegacyLogger(nil, &stubReader{})
	id := l.GenerateEventID()
	if !strings.HasPrefix(id, "evt_") || !strings.HasSuffix(id, "_0") {
		t.Errorf("id = %q, want evt_<ms>_0 before any events", id)
	}

	l.LogEvent(Event{Kind: KindAnalysisStart})
	if id := l.GenerateEventID(); !strings.HasSuffix(id, "_1") {
		t.Errorf("id = %q, want count suffix 1 after one event", id)
	}
}

func TestLegacyTrackOperation(t *testing.T) {
	l := NewLegacyLogger(nil, &stubReader{})

	boom := errors.New("no luck")
	err := l.TrackOperation(context.Background(), KindAnalysisStart, TrackOptions{SessionID: "s1"}, func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error not propagated: %v", err)
	}
	// start, error, complete
	if got := l.EventCount(); got != 3 {
		t.Errorf("EventCount = %d, want 3", got)
	}

	s := l.Summary("s1")
	if s.Session == nil {
		t.Fatal("session stats missing")
	}
	if s.Session.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", s.Session.ErrorCount)
	}
}

func TestLegacyHealthCheckThresholds(t *testing.T) {
	reader := &stubReader{}
	l := NewLegacyLogger(nil, reader)

	tests := []struct {
		name   string
		sample Metrics
		want   string
	}{
		{"healthy", Metrics{CPUPercent: 50, MemoryPercent: 50, DiskPercent: 50}, HealthHealthy},
		{"cpu above 80", Metrics{CPUPercent: 81}, HealthWarning},
		{"memory above 85", Metrics{MemoryPercent: 86}, HealthCritical},
		{"disk above 90", Metrics{DiskPercent: 91}, HealthCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader.set(tt.sample, nil)
			if h := l.HealthCheck(); h.Status != tt.want {
				t.Errorf("status = %s, want %s", h.Status, tt.want)
			}
		})
	}

	t.Run("reader failure degrades", func(t *testing.T) {
		reader.set(Metrics{}, errors.New("offline"))
		if h := l.HealthCheck(); h.Status != HealthDegraded {
			t.Errorf("status = %s, want degraded", h.Status)
		}
	})
}
