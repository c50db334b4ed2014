// Package pubsub provides the two channel shapes a crowd session is built
// from: a bounded many-to-one command queue whose senders are counted, and a
// bounded one-to-many broadcaster that drops the oldest value for slow
// subscribers.
package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
)

type queue[T any] struct {
	ch   chan T
	done chan struct{}

	mu      sync.Mutex
	senders int

	closeOnce sync.Once
}

// Sender is one producer handle onto a command queue. Each handle must be
// released exactly once; a handle must not be used concurrently with its own
// Release.
type Sender[T any] struct {
	q        *queue[T]
	released atomic.Bool
}

// Receiver is the single consumer of a command queue.
type Receiver[T any] struct {
	q *queue[T]
}

// NewQueue creates a bounded queue and returns its first sender and its
// receiver.
func NewQueue[T any](capacity int) (*Sender[T], *Receiver[T]) {
	if capacity < 1 {
		capacity = 1
	}
	q := &queue[T]{
		ch:      make(chan T, capacity),
		done:    make(chan struct{}),
		senders: 1,
	}
	return &Sender[T]{q: q}, &Receiver[T]{q: q}
}

// Clone returns a new sender onto the same queue. It fails once the
// receiver has gone away or every sender has been released.
func (s *Sender[T]) Clone() (*Sender[T], error) {
	if s.released.Load() {
		return nil, ErrReleased
	}

	q := s.q
	select {
	case <-q.done:
		return nil, ErrClosed
	default:
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.senders == 0 {
		return nil, ErrClosed
	}
	q.senders++
	return &Sender[T]{q: q}, nil
}

// Send enqueues v, waiting while the queue is full. It fails with ErrClosed
// when the receiver is gone.
func (s *Sender[T]) Send(ctx context.Context, v T) error {
	if s.released.Load() {
		return ErrReleased
	}

	q := s.q
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- v:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release gives the handle back. When the last sender is released the
// receiver's channel is closed.
func (s *Sender[T]) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}

	q := s.q
	q.mu.Lock()
	defer q.mu.Unlock()
	q.senders--
	if q.senders == 0 {
		close(q.ch)
	}
}

// Senders reports how many sender handles are currently outstanding.
func (s *Sender[T]) Senders() int {
	s.q.mu.Lock()
	defer s.q.mu.Unlock()
	return s.q.senders
}

// C yields queued values in arrival order. It is closed once every sender
// has been released.
func (r *Receiver[T]) C() <-chan T {
	return r.q.ch
}

// Close detaches the receiver; pending and future sends fail with ErrClosed.
func (r *Receiver[T]) Close() {
	r.q.closeOnce.Do(func() {
		close(r.q.done)
	})
}

// Done is closed once the receiver has been closed.
func (r *Receiver[T]) Done() <-chan struct{} {
	return r.q.done
}
