package monitoring

import "time"

// SessionStats aggregates the events carrying one session id.
type SessionStats struct {
	StartTime       time.Time `json:"start_time"`
	EventCount      int       `json:"events_count"`
	ErrorCount      int       `json:"errors_count"`
	FilesAnalyzed   int       `json:"total_files_analyzed"`
	TotalAnalysisMS float64   `json:"total_analysis_time_ms"`
}

// SessionSummary is SessionStats plus the number of matching events still in
// the retention buffer.
type SessionSummary struct {
	SessionStats
	EventCount int `json:"session_events"`
}

// sessionTable tracks per-session aggregates, created lazily on first sight
// of a session id. Entries are never evicted: sessions grow without bound
// until the whole backend is reset. Known limitation, kept deliberately.
// Mutated only under the owning backend's mutex.
type sessionTable map[string]*SessionStats

// record updates the aggregate for e's session, if it carries one.
func (t sessionTable) record(e Event) {
	if e.SessionID == "" {
		return
	}
	stats, ok := t[e.SessionID]
	if !ok {
		stats = &SessionStats{StartTime: e.Timestamp}
		t[e.SessionID] = stats
	}
	stats.EventCount++
	if e.Kind.IsError() {
		stats.ErrorCount++
	}
	if e.Kind == KindFileAnalysisComplete && e.DurationMS > 0 {
		stats.FilesAnalyzed++
		stats.TotalAnalysisMS += e.DurationMS
	}
}

// summarize computes the Summary shared by both backend implementations from
// a snapshot of the retained events. Callers pass copies; nothing here needs
// a lock.
func summarize(events []Event, sessions sessionTable, sessionID string) Summary {
	if sessionID != "" {
		if stats, ok := sessions[sessionID]; ok {
			matching := 0
			for _, e := range events {
				if e.SessionID == sessionID {
					matching++
				}
			}
			statsCopy := *stats
			return Summary{
				TotalEvents:    len(events),
				ActiveSessions: len(sessions),
				Session: &SessionSummary{
					SessionStats: statsCopy,
					EventCount:   matching,
				},
			}
		}
	}

	var (
		errorCount    int
		cpuSum        float64
		memSum        float64
		metricEvents  int
		durationSum   float64
		durationCount int
		lastEvent     time.Time
	)
	for _, e := range events {
		if e.Kind.IsError() {
			errorCount++
		}
		if e.Metrics != nil {
			cpuSum += e.Metrics.CPUPercent
			memSum += e.Metrics.MemoryPercent
			metricEvents++
		}
		if e.DurationMS > 0 {
			durationSum += e.DurationMS
			durationCount++
		}
		if e.Timestamp.After(lastEvent) {
			lastEvent = e.Timestamp
		}
	}

	s := Summary{
		TotalEvents:    len(events),
		ActiveSessions: len(sessions),
		LastEventTime:  lastEvent,
	}
	if len(events) > 0 {
		s.ErrorRatePercent = float64(errorCount) / float64(len(events)) * 100
	}
	if metricEvents > 0 {
		s.AverageCPUPercent = cpuSum / float64(metricEvents)
		s.AverageMemoryPercent = memSum / float64(metricEvents)
	}
	if durationCount > 0 {
		s.AverageDurationMS = durationSum / float64(durationCount)
	}
	return s
}

// clone copies the table so summaries can read it outside the lock.
func (t sessionTable) clone() sessionTable {
	out := make(sessionTable, len(t))
	for id, stats := range t {
		statsCopy := *stats
		out[id] = &statsCopy
	}
	return out
}
