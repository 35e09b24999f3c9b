// Package queue provides the in-process work queue between the slash command
// handler and the star worker.
//
// A Queue is unbounded and has many producers but exactly one consumer for
// its whole lifetime. Producers never wait on the consumer. Items come out in
// the order they went in, which in particular preserves the order of items
// enqueued by any single producer.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned once the consumer has gone away for good.
var ErrClosed = errors.New("queue: consumer terminated")

// Queue is an unbounded FIFO with many producers and a single consumer.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	// ready holds at most one wakeup for the consumer.
	ready chan struct{}
}

// New returns an empty, open queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		ready: make(chan struct{}, 1),
	}
}

// Enqueue appends item without blocking. It fails only after Close.
func (q *Queue[T]) Enqueue(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.wake()
	return nil
}

// Dequeue blocks until an item is available, ctx is done, or the queue is
// closed. Once ctx is done it returns ctx.Err() even if items are waiting.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-q.ready:
		}
	}
}

// Close marks the consumer as terminated. Pending items are discarded and
// their count is returned. Close is idempotent.
func (q *Queue[T]) Close() int {
	q.mu.Lock()
	dropped := len(q.items)
	q.items = nil
	q.closed = true
	q.mu.Unlock()

	q.wake()
	return dropped
}

// Len returns the number of items waiting for the consumer.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
