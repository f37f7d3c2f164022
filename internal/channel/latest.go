// Package channel holds the mailboxes between producers and the frame
// loop: a last-write-wins slot for controller input and a drop-oldest
// queue for outbound messages.
package channel

import "sync"

// Latest keeps only the newest value written.
type Latest[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
}

func NewLatest[T any](initial T) *Latest[T] {
	return &Latest[T]{value: initial}
}

func (l *Latest[T]) Store(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
	l.version++
}

func (l *Latest[T]) Load() T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value
}

// Version counts Stores, so a reader can tell a fresh value from a
// repeated one.
func (l *Latest[T]) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Reset stores the zero value.
func (l *Latest[T]) Reset() {
	var zero T
	l.Store(zero)
}
