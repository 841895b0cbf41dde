// Package registry tracks the set of active client connections and
// implements the "shut everyone down, then wait for the drain" teardown
// sequence used by the supervisor.
package registry

import "sync"

// Handle is anything the registry can half-close to unblock a task that is
// reading from it.
type Handle interface {
	CloseRead() error
}

// Registry is a set of active handles supporting idempotent-safe
// registration (per distinct handle value), a one-shot shutdown that
// half-closes every member for reading, and a single-waiter drain.
type Registry struct {
	mu        sync.Mutex
	handles   map[Handle]struct{}
	draining  bool
	empty     chan struct{}
	emptyOnce sync.Once
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		handles: make(map[Handle]struct{}),
		empty:   make(chan struct{}),
	}
}

// Register adds h to the set. Registering the same handle twice is caller
// error; the registry does not detect it.
func (r *Registry) Register(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h] = struct{}{}
}

// Unregister removes h from the set. If shutdown is in progress and the set
// has become empty, it signals the drain waiter exactly once.
func (r *Registry) Unregister(h Handle) {
	r.mu.Lock()
	delete(r.handles, h)
	signal := r.draining && len(r.handles) == 0
	r.mu.Unlock()
	if signal {
		r.emptyOnce.Do(func() { close(r.empty) })
	}
}

// ShutdownAll half-closes every currently registered handle for reading so
// each owning task observes EOF on its next read and terminates on its own.
// It is idempotent with respect to the drain signal: calling it when the
// set is already empty signals immediately.
func (r *Registry) ShutdownAll() {
	r.mu.Lock()
	r.draining = true
	handles := make([]Handle, 0, len(r.handles))
	for h := range r.handles {
		handles = append(handles, h)
	}
	empty := len(handles) == 0
	r.mu.Unlock()

	for _, h := range handles {
		h.CloseRead()
	}
	if empty {
		r.emptyOnce.Do(func() { close(r.empty) })
	}
}

// WaitForEmpty blocks until the set has become empty following a
// ShutdownAll. Intended for a single caller at teardown; a second
// concurrent waiter would also unblock, but the registry is not designed
// for that usage.
func (r *Registry) WaitForEmpty() {
	<-r.empty
}

// Len reports the number of currently registered handles. Exposed for
// tests and diagnostics; not part of the drain protocol.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
