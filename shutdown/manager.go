package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Manager coordinates graceful shutdown: a managed context cancelled on the
// first SIGINT/SIGTERM, in-flight operation draining, and priority-ordered
// cleanup. A second signal force-exits immediately.
//
// Usage:
//
//	mgr := shutdown.NewManager(logger)
//	mgr.Register("database", 30, func(ctx context.Context) error { return conn.Close() })
//	mgr.Start()
//	<-mgr.Context().Done()
//	mgr.Shutdown()
type Manager struct {
	log     *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	started  bool
	shutdown bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *Registry
	sigChan  chan os.Signal

	// forceExit is swapped out by tests; defaults to os.Exit(1).
	forceExit func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets the total shutdown budget. Default 60 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// NewManager creates a Manager. The logger is used for all shutdown logging.
func NewManager(log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		log:       log.Named("shutdown"),
		timeout:   60 * time.Second,
		ctx:       ctx,
		cancel:    cancel,
		tracker:   NewOperationTracker(),
		registry:  NewRegistry(),
		sigChan:   make(chan os.Signal, 1),
		forceExit: func() { os.Exit(1) },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context returns the managed context, cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup function. Lower priorities run first; see Registry
// for the conventions.
func (m *Manager) Register(name string, priority int, fn Func) {
	m.registry.Register(name, priority, fn)
	m.log.Debug("registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority),
	)
}

// Start begins listening for SIGINT and SIGTERM. The first signal cancels the
// managed context; the second force-exits. Safe to call more than once.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		signals := 0
		for sig := range m.sigChan {
			signals++
			if signals == 1 {
				m.log.Info("shutdown signal received, starting graceful shutdown",
					zap.String("signal", sig.String()),
				)
				m.cancel()
				continue
			}
			m.log.Warn("second signal received, forcing exit")
			m.forceExit()
		}
	}()

	m.log.Info("shutdown manager listening for signals")
}

// Shutdown drains in-flight operations and runs the cleanup registry.
// Idempotent; repeat calls return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	start := time.Now()
	m.cancel()
	m.tracker.Close()

	if active := m.tracker.ActiveCount(); active > 0 {
		m.log.Info("waiting for in-flight operations", zap.Int64("active", active))
	}
	if err := m.tracker.Wait(m.timeout); err != nil {
		m.log.Warn("timed out waiting for in-flight operations",
			zap.Int64("remaining", m.tracker.ActiveCount()),
		)
	}

	remaining := m.timeout - time.Since(start)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	m.log.Info("running cleanup handlers", zap.Strings("handlers", m.registry.Names()))
	errs := m.registry.RunAll(ctx)
	for _, err := range errs {
		m.log.Error("cleanup handler failed", zap.Error(err))
	}

	signal.Stop(m.sigChan)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown had %d errors", len(errs))
	}
	m.log.Info("graceful shutdown complete", zap.Duration("took", time.Since(start)))
	return nil
}

// WrapOperation runs fn as a tracked operation. Returns ErrTrackerClosed
// without running fn once shutdown has begun.
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		m.log.Debug("operation rejected, shutting down", zap.String("operation", name))
		return ErrTrackerClosed
	}
	defer m.tracker.Done()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return context.Canceled
	default:
	}
	return fn(ctx)
}

// ActiveOperations returns the number of in-flight tracked operations.
func (m *Manager) ActiveOperations() int64 {
	return m.tracker.ActiveCount()
}

// IsShuttingDown reports whether shutdown has begun.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown || m.tracker.IsClosed()
}
