package shutdown

import (
	"context"
	"sort"
	"sync"
)

// Func is one cleanup step run during shutdown.
type Func func(ctx context.Context) error

type entry struct {
	name     string
	fn       Func
	priority int // lower runs earlier
}

// Registry holds cleanup functions ordered by priority.
//
// Priority conventions:
//   - 0-9: flush logs and metrics
//   - 10-19: close client connections
//   - 20-29: stop background workers
//   - 30-39: close databases and files
//   - 40+: final cleanup
type Registry struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a cleanup function. Lower priorities run first.
// Registrations after RunAll are ignored.
func (r *Registry) Register(name string, priority int, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.entries = append(r.entries, entry{name: name, fn: fn, priority: priority})
}

// RunAll executes every registered function in priority order. All functions
// run even when earlier ones fail; the collected errors are returned. The
// registry is closed afterwards.
func (r *Registry) RunAll(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sorted := make([]entry, len(r.entries))
	copy(sorted, r.entries)
	r.mu.Unlock()

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})

	var errs []error
	for _, e := range sorted {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Names lists registered functions in execution order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	sorted := make([]entry, len(r.entries))
	copy(sorted, r.entries)
	r.mu.Unlock()

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})

	names := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.name
	}
	return names
}

// Count returns the number of registered functions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
