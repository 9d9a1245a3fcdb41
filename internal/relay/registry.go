package relay

import (
	"log/slog"
	"sync"
)

// Registry counts live sessions. All access is serialized by one mutex;
// Count is stale as soon as it returns.
type Registry struct {
	mu    sync.Mutex
	count int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Increment records a session start and returns the new count.
func (r *Registry) Increment() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.count
}

// Decrement records a session end and returns the new count. It saturates
// at zero; an underflow attempt means a session was torn down twice.
func (r *Registry) Decrement() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		slog.Warn("relay registry underflow: decrement at zero")
		return 0
	}
	r.count--
	return r.count
}

// Count returns the current number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
