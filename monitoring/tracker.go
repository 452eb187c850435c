package monitoring

import (
	"context"
	"fmt"
	"time"
)

// eventSink is the capability a tracked operation needs from its backend:
// id generation, a best-effort system snapshot, and event recording. Both
// backend implementations satisfy it, so the scope state machine lives here
// exactly once.
type eventSink interface {
	LogEvent(e Event)
	GenerateEventID() string
	metricsSnapshot() *Metrics
}

// TrackOperation runs fn inside a scoped start/error/complete triple.
// See track for the contract.
func (m *Monitor) TrackOperation(ctx context.Context, kind EventKind, opts TrackOptions, fn func(context.Context) error) error {
	return track(ctx, m, kind, opts, fn)
}

// track is the scope state machine: started -> (error?) -> completed.
//
//   - Entering the scope records a start event carrying a fresh correlation
//     id and a system snapshot.
//   - An error returned by fn (or a panic escaping it) records an error
//     event; the error is returned — and a panic re-raised — unmodified.
//   - Every exit path records a complete event with the measured wall-clock
//     duration, a second snapshot whose response time is that duration, and
//     a success flag.
//
// The three events share one id with _start/_error/_complete suffixes, which
// is the only ordering anchor consumers get across concurrent scopes. Each
// invocation owns its own id and timing state, so scopes nest and run
// concurrently without coordination beyond the sink's own locking.
func track(ctx context.Context, sink eventSink, kind EventKind, opts TrackOptions, fn func(context.Context) error) error {
	id := sink.GenerateEventID()
	start := time.Now()

	sink.LogEvent(Event{
		ID:          id + "_start",
		Kind:        kind,
		Timestamp:   start.UTC(),
		Level:       opts.Level,
		ProjectPath: opts.ProjectPath,
		FilePath:    opts.FilePath,
		SessionID:   opts.SessionID,
		Metadata:    withPhase(opts.Metadata, "start"),
		Metrics:     sink.metricsSnapshot(),
	})

	var err error
	failed := false

	complete := func() {
		durationMS := float64(time.Since(start)) / float64(time.Millisecond)
		snapshot := sink.metricsSnapshot()
		if snapshot != nil {
			snapshot.ResponseTimeMS = durationMS
		}
		meta := withPhase(opts.Metadata, "complete")
		meta["success"] = !failed
		sink.LogEvent(Event{
			ID:          id + "_complete",
			Kind:        completionKind(kind),
			Timestamp:   time.Now().UTC(),
			Level:       opts.Level,
			ProjectPath: opts.ProjectPath,
			FilePath:    opts.FilePath,
			DurationMS:  durationMS,
			SessionID:   opts.SessionID,
			Metadata:    meta,
			Metrics:     snapshot,
		})
	}

	defer func() {
		if r := recover(); r != nil {
			failed = true
			recordError(sink, id, opts, fmt.Sprintf("panic: %v", r))
			complete()
			panic(r)
		}
		complete()
	}()

	err = fn(ctx)
	if err != nil {
		failed = true
		recordError(sink, id, opts, err.Error())
	}
	return err
}

func recordError(sink eventSink, id string, opts TrackOptions, message string) {
	sink.LogEvent(Event{
		ID:           id + "_error",
		Kind:         KindAnalysisError,
		Timestamp:    time.Now().UTC(),
		Level:        LevelStandard,
		ProjectPath:  opts.ProjectPath,
		FilePath:     opts.FilePath,
		ErrorMessage: message,
		SessionID:    opts.SessionID,
		Metadata:     withPhase(opts.Metadata, "error"),
	})
}

// completionKind derives the complete-event kind from the operation kind.
func completionKind(kind EventKind) EventKind {
	switch kind {
	case KindFileScanStart, KindFileScanComplete:
		return KindFileScanComplete
	case KindFileAnalysisStart, KindFileAnalysisComplete:
		return KindFileAnalysisComplete
	case KindAIRequestStart, KindAIRequestComplete, KindAIRequestError:
		return KindAIRequestComplete
	default:
		return KindAnalysisComplete
	}
}

// withPhase copies meta and tags it with the scope phase. The copy keeps the
// three scope events from sharing one mutable map.
func withPhase(meta map[string]any, phase string) map[string]any {
	out := make(map[string]any, len(meta)+2)
	for k, v := range meta {
		out[k] = v
	}
	out["operation_phase"] = phase
	return out
}
