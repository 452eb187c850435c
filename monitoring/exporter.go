package monitoring

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Exporter receives flushed batches. Delivery is at-most-once and
// best-effort: a failing exporter has its error logged and the batch is not
// re-queued. No timeout is imposed on exporter I/O, so a slow sink stalls the
// flush that triggered it.
type Exporter interface {
	// ExportEvents writes one batch of events.
	ExportEvents(events []Event) error

	// ExportMetrics writes one batch of metric samples.
	ExportMetrics(metrics []Metrics) error
}

// FileExporter appends one compact JSON object per line to a log file,
// rotating it with a timestamp suffix once it crosses the configured size
// threshold. Single-writer only: rotation is not safe for concurrent writers
// to the same path.
type FileExporter struct {
	w *lumberjack.Logger
}

// NewFileExporter creates a file exporter for path. maxSizeMB <= 0 falls
// back to 100 MB.
func NewFileExporter(path string, maxSizeMB int) *FileExporter {
	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}
	return &FileExporter{
		w: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: 5,
			MaxAge:     30,
		},
	}
}

// ExportEvents writes the batch as NDJSON.
func (f *FileExporter) ExportEvents(events []Event) error {
	for _, e := range events {
		line, err := encodeCompact(e.Compact())
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		if _, err := f.w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write event %s: %w", e.ID, err)
		}
	}
	return nil
}

// ExportMetrics writes the samples as NDJSON.
func (f *FileExporter) ExportMetrics(metrics []Metrics) error {
	for _, m := range metrics {
		line, err := json.Marshal(m.Compact())
		if err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
		if _, err := f.w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the underlying file.
func (f *FileExporter) Close() error {
	return f.w.Close()
}

// encodeCompact marshals a compact event map. A metadata value that cannot
// be JSON-encoded must not abort the whole event write, so on failure the
// metadata values are stringified and the encode retried.
func encodeCompact(data map[string]any) ([]byte, error) {
	line, err := json.Marshal(data)
	if err == nil {
		return line, nil
	}
	if meta, ok := data["meta"].(map[string]any); ok {
		safe := make(map[string]any, len(meta))
		for k, v := range meta {
			if _, vErr := json.Marshal(v); vErr != nil {
				safe[k] = fmt.Sprintf("%v", v)
			} else {
				safe[k] = v
			}
		}
		data["meta"] = safe
		return json.Marshal(data)
	}
	return nil, err
}

// ConsoleExporter echoes events to stdout with per-kind coloring, the
// development-time equivalent of tailing the NDJSON sink.
type ConsoleExporter struct {
	errorc   *color.Color
	warnc    *color.Color
	successc *color.Color
	infoc    *color.Color
}

// NewConsoleExporter creates a console exporter.
func NewConsoleExporter() *ConsoleExporter {
	return &ConsoleExporter{
		errorc:   color.New(color.FgRed),
		warnc:    color.New(color.FgYellow),
		successc: color.New(color.FgGreen),
		infoc:    color.New(color.FgCyan),
	}
}

// ExportEvents prints one line per event.
func (c *ConsoleExporter) ExportEvents(events []Event) error {
	for _, e := range events {
		printer := c.infoc
		switch {
		case e.Kind.IsError():
			printer = c.errorc
		case e.Kind == KindMemoryWarning || e.Kind == KindCPUWarning:
			printer = c.warnc
		case e.Kind == KindAnalysisComplete || e.Kind == KindFileAnalysisComplete || e.Kind == KindAIRequestComplete:
			printer = c.successc
		}
		line, err := encodeCompact(e.Compact())
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		printer.Printf("%s | %s\n", e.Timestamp.Format("15:04:05"), line)
	}
	return nil
}

// ExportMetrics prints one line per sample.
func (c *ConsoleExporter) ExportMetrics(metrics []Metrics) error {
	for _, m := range metrics {
		line, err := json.Marshal(m.Compact())
		if err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
		c.infoc.Printf("%s | %s\n", m.Timestamp.Format("15:04:05"), line)
	}
	return nil
}
