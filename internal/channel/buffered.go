package channel

import "sync"

// Buffered is a bounded queue whose Send never blocks. When it is full the
// oldest value makes room for the new one.
type Buffered[T any] struct {
	mu      sync.Mutex
	ch      chan T
	closed  bool
	evicted int
}

func NewBuffered[T any](size int) *Buffered[T] {
	return &Buffered[T]{ch: make(chan T, max(size, 1))}
}

// Send queues v and reports whether an older value was evicted for it.
// Sends after Close are dropped.
func (b *Buffered[T]) Send(v T) (evicted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	for {
		select {
		case b.ch <- v:
			return evicted
		default:
		}
		select {
		case <-b.ch:
			b.evicted++
			evicted = true
		default:
		}
	}
}

// Receive is the consumer side.
func (b *Buffered[T]) Receive() <-chan T { return b.ch }

func (b *Buffered[T]) Len() int { return len(b.ch) }

// Dropped counts values evicted unread.
func (b *Buffered[T]) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evicted
}

// Close ends Receive once the queue drains. It is idempotent.
func (b *Buffered[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}
