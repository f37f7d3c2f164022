// Package queue holds rows waiting to be written in batches.
package queue

import "sync"

// Queue is a FIFO safe for concurrent use. Failed batches go back to the
// head with Requeue so write order survives a retry.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Requeue puts items back in front of everything queued since they were
// drained.
func (q *Queue[T]) Requeue(items []T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append(make([]T, 0, len(items)+len(q.items)), items...), q.items...)
}

// Drain takes up to n items from the head; n <= 0 takes all of them.
func (q *Queue[T]) Drain(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || n > len(q.items) {
		n = len(q.items)
	}
	batch := q.items[:n:n]
	if n == len(q.items) {
		q.items = nil
	} else {
		q.items = append([]T(nil), q.items[n:]...)
	}
	return batch
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) Empty() bool { return q.Len() == 0 }

func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}
