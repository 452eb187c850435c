package monitoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func trackerMonitor(t *testing.T) (*Monitor, *captureExporter) {
	t.Helper()
	sink := &captureExporter{}
	cfg := testConfig()
	cfg.BatchSize = 1
	m := newTestMonitor(t, cfg, WithExporter(sink), WithSystemReader(&stubReader{}))
	return m, sink
}

// scopeEvents drops the startup event and returns what a tracked operation
// produced.
func scopeEvents(sink *captureExporter) []Event {
	all := sink.allEvents()
	var out []Event
	for _, e := range all {
		if e.Kind == KindSystemStart {
			continue
		}
		out = append(out, e)
	}
	return out
}

func TestTrackOperationSuccess(t *testing.T) {
	m, sink := trackerMonitor(t)

	ran := false
	err := m.TrackOperation(context.Background(), KindAnalysisStart, TrackOptions{
		ProjectPath: "/srv/app",
		SessionID:   "s1",
	}, func(ctx context.Context) error {
		ran = true
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("TrackOperation: %v", err)
	}
	if !ran {
		t.Fatal("operation body did not run")
	}

	events := scopeEvents(sink)
	if len(events) != 2 {
		t.Fatalf("got %d events, want start and complete", len(events))
	}

	start, complete := events[0], events[1]
	if start.Kind != KindAnalysisStart || complete.Kind != KindAnalysisComplete {
		t.Errorf("kinds = %s, %s", start.Kind, complete.Kind)
	}
	if !strings.HasSuffix(start.ID, "_start") || !strings.HasSuffix(complete.ID, "_complete") {
		t.Errorf("ids = %q, %q", start.ID, complete.ID)
	}
	if strings.TrimSuffix(start.ID, "_start") != strings.TrimSuffix(complete.ID, "_complete") {
		t.Errorf("start and complete do not share a correlation id: %q vs %q", start.ID, complete.ID)
	}
	if complete.DurationMS < 5 || complete.DurationMS > 5000 {
		t.Errorf("DurationMS = %v, want a plausible wall-clock measurement", complete.DurationMS)
	}
	if complete.ProjectPath != "/srv/app" || complete.SessionID != "s1" {
		t.Errorf("options not propagated: %+v", complete)
	}
	if complete.Metadata["success"] != true {
		t.Errorf("success flag = %v", complete.Metadata["success"])
	}
	if complete.Metrics == nil || complete.Metrics.ResponseTimeMS != complete.DurationMS {
		t.Error("complete snapshot should carry the measured duration as response time")
	}
}

func TestTrackOperationError(t *testing.T) {
	m, sink := trackerMonitor(t)

	boom := errors.New("analysis exploded")
	err := m.TrackOperation(context.Background(), KindAnalysisStart, TrackOptions{}, func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error not returned unmodified: %v", err)
	}

	events := scopeEvents(sink)
	if len(events) != 3 {
		t.Fatalf("got %d events, want start, error, complete", len(events))
	}
	if events[1].Kind != KindAnalysisError {
		t.Errorf("middle event = %s, want analysis_error", events[1].Kind)
	}
	if events[1].ErrorMessage != "analysis exploded" {
		t.Errorf("ErrorMessage = %q", events[1].ErrorMessage)
	}
	if !strings.HasSuffix(events[1].ID, "_error") {
		t.Errorf("error id = %q", events[1].ID)
	}
	if events[2].Metadata["success"] != false {
		t.Errorf("success flag = %v after failure", events[2].Metadata["success"])
	}
}

func TestTrackOperationPanic(t *testing.T) {
	m, sink := trackerMonitor(t)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("panic should be re-raised")
			}
		}()
		_ = m.TrackOperation(context.Background(), KindAnalysisStart, TrackOptions{}, func(ctx context.Context) error {
			panic("unexpected state")
		})
	}()

	events := scopeEvents(sink)
	if len(events) != 3 {
		t.Fatalf("got %d events, want start, error, complete", len(events))
	}
	if !strings.Contains(events[1].ErrorMessage, "unexpected state") {
		t.Errorf("panic message lost: %q", events[1].ErrorMessage)
	}
}

func TestCompletionKind(t *testing.T) {
	tests := []struct {
		in   EventKind
		want EventKind
	}{
		{KindFileScanStart, KindFileScanComplete},
		{KindFileAnalysisStart, KindFileAnalysisComplete},
		{KindAIRequestStart, KindAIRequestComplete},
		{KindAnalysisStart, KindAnalysisComplete},
		{KindHealthCheck, KindAnalysisComplete},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			if got := completionKind(tt.in); got != tt.want {
				t.Errorf("completionKind(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestTrackOperationMetadataIsolated(t *testing.T) {
	m, sink := trackerMonitor(t)

	meta := map[string]any{"attempt": 1}
	_ = m.TrackOperation(context.Background(), KindAnalysisStart, TrackOptions{Metadata: meta}, func(ctx context.Context) error {
		return nil
	})

	if _, polluted := meta["operation_phase"]; polluted {
		t.Error("caller's metadata map was mutated")
	}
	events := scopeEvents(sink)
	if events[0].Metadata["operation_phase"] != "start" || events[1].Metadata["operation_phase"] != "complete" {
		t.Errorf("phases = %v, %v", events[0].Metadata["operation_phase"], events[1].Metadata["operation_phase"])
	}
}
