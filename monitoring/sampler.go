package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gopsnet "github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"
)

// SystemReader reads one system measurement. The abstraction exists so tests
// can substitute deterministic readings for the gopsutil-backed default.
type SystemReader interface {
	ReadSystemMetrics() (Metrics, error)
}

// GopsutilReader samples the host via gopsutil: CPU percent since the last
// call, virtual memory, root-filesystem usage, and TCP connection count.
type GopsutilReader struct{}

// ReadSystemMetrics reads the current system state. A failed connection
// enumeration (commonly a permissions issue in containers) degrades to a
// zero count instead of failing the whole sample.
func (GopsutilReader) ReadSystemMetrics() (Metrics, error) {
	cpuPercents, err := cpu.Percent(0, false)
	if err != nil {
		return Metrics{}, err
	}
	var cpuPercent float64
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return Metrics{}, err
	}

	du, err := disk.Usage("/")
	if err != nil {
		return Metrics{}, err
	}

	connections := 0
	if conns, connErr := gopsnet.Connections("tcp"); connErr == nil {
		connections = len(conns)
	}

	return Metrics{
		Timestamp:         time.Now().UTC(),
		CPUPercent:        cpuPercent,
		MemoryPercent:     vm.UsedPercent,
		MemoryUsedMB:      float64(vm.Used) / (1024 * 1024),
		DiskPercent:       du.UsedPercent,
		ActiveConnections: connections,
	}, nil
}

// sampler is the supervised background task that periodically samples system
// state, emits threshold-crossing warnings, buffers the sample, and triggers
// retention cleanup. One long-lived goroutine with cooperative cancellation;
// stop blocks until the goroutine has acknowledged it.
type sampler struct {
	monitor  *Monitor
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSampler(m *Monitor, interval time.Duration) *sampler {
	return &sampler{monitor: m, interval: interval}
}

// start launches the sampling loop. Non-blocking.
func (s *sampler) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(ctx)
}

// stop cancels the loop and waits for it to exit.
func (s *sampler) stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *sampler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.samplePass()
		}
	}
}

// samplePass performs one sampling cycle. A failed pass is logged and
// swallowed so the next tick still runs; nothing here may kill the loop.
func (s *sampler) samplePass() {
	m := s.monitor

	sample, err := m.reader.ReadSystemMetrics()
	if err != nil {
		m.log.Error("performance sampling failed", zap.Error(err))
		return
	}

	// Warnings go out before the sample is buffered so a consumer replaying
	// the event stream sees the warning no later than the sample itself.
	if sample.CPUPercent > m.cfg.CPUWarningThreshold {
		m.LogEvent(Event{
			Kind:      KindCPUWarning,
			Timestamp: sample.Timestamp,
			Level:     LevelStandard,
			Metadata:  map[string]any{"cpu_percent": sample.CPUPercent},
		})
	}
	if sample.MemoryPercent > m.cfg.MemoryWarningThreshold {
		m.LogEvent(Event{
			Kind:      KindMemoryWarning,
			Timestamp: sample.Timestamp,
			Level:     LevelStandard,
			Metadata:  map[string]any{"memory_percent": sample.MemoryPercent},
		})
	}

	m.recordMetrics(sample)

	if m.cfg.AutoCleanup {
		m.cleanup(time.Now().UTC())
	}
}
