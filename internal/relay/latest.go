// Package relay fans a single stream of events out to live subscriber
// sessions.
//
// A Latest holds the current value. Producers replace it through a Publisher;
// every Session owns an Observer and pushes each change it observes to its
// connection. Observers coalesce: a slow observer skips straight to the
// newest value instead of queueing intermediate ones.
package relay

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Observer.Wait once the Latest has been closed.
var ErrClosed = errors.New("relay: channel closed")

// Latest is a single-slot, multi-reader broadcast cell.
type Latest[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	changed chan struct{} // closed and replaced on every publish
	closed  bool
}

// NewLatest returns a Latest seeded with initial at version 0.
func NewLatest[T any](initial T) *Latest[T] {
	return &Latest[T]{
		value:   initial,
		changed: make(chan struct{}),
	}
}

// Publish replaces the current value and wakes every waiting observer.
// It never blocks on observers. Publishing after Close is a no-op.
func (l *Latest[T]) Publish(v T) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.value = v
	l.version++
	wake := l.changed
	l.changed = make(chan struct{})
	l.mu.Unlock()

	close(wake)
}

// Close permanently closes the cell. Blocked and future waiters return
// ErrClosed once they have consumed any value they had not yet seen.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	wake := l.changed
	l.mu.Unlock()

	close(wake)
}

// Version returns the number of publishes so far.
func (l *Latest[T]) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Closed reports whether Close has been called.
func (l *Latest[T]) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

func (l *Latest[T]) snapshot() (value T, version uint64, changed <-chan struct{}, closed bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.version, l.changed, l.closed
}

// Subscribe returns an observer seeded with the current value. The seed
// counts as seen: Wait blocks until the next publish.
func (l *Latest[T]) Subscribe() *Observer[T] {
	v, ver, _, _ := l.snapshot()
	return &Observer[T]{src: l, seen: ver, current: v}
}

// Observer is one reader's view of a Latest. It is owned by a single
// goroutine and must not be shared.
type Observer[T any] struct {
	src     *Latest[T]
	seen    uint64
	current T
}

// Wait blocks until the value has changed since the last observation and
// returns the newest one. Several publishes between two calls are observed
// as one.
func (o *Observer[T]) Wait(ctx context.Context) (T, error) {
	for {
		v, ver, changed, closed := o.src.snapshot()
		if ver > o.seen {
			o.seen = ver
			o.current = v
			return v, nil
		}
		if closed {
			var zero T
			return zero, ErrClosed
		}
		select {
		case <-changed:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Changed reports whether a publish happened since the last observation,
// without consuming it.
func (o *Observer[T]) Changed() bool {
	_, ver, _, _ := o.src.snapshot()
	return ver > o.seen
}

// Current returns the value most recently returned by Wait, or the seed.
func (o *Observer[T]) Current() T {
	return o.current
}
