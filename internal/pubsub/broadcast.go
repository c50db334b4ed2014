package pubsub

import (
	"sync"
	"sync/atomic"
)

// Broadcaster fans every published value out to all current subscribers.
// Each subscriber has its own bounded buffer; when it is full the oldest
// buffered value is discarded and the subscriber is marked as lagged.
type Broadcaster[T any] struct {
	mu       sync.Mutex
	capacity int
	subs     map[*Subscription[T]]struct{}
	closed   bool
}

// Subscription is one subscriber's view of a Broadcaster.
type Subscription[T any] struct {
	b      *Broadcaster[T]
	ch     chan T
	lagged atomic.Uint64
	once   sync.Once
}

// NewBroadcaster creates a broadcaster whose subscribers buffer up to
// capacity values each.
func NewBroadcaster[T any](capacity int) *Broadcaster[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Broadcaster[T]{
		capacity: capacity,
		subs:     make(map[*Subscription[T]]struct{}),
	}
}

// Subscribe registers a fresh subscriber that sees values published from
// now on.
func (b *Broadcaster[T]) Subscribe() (*Subscription[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	sub := &Subscription[T]{
		b:  b,
		ch: make(chan T, b.capacity),
	}
	b.subs[sub] = struct{}{}
	return sub, nil
}

// Publish delivers v to every subscriber without blocking and returns how
// many subscribers it reached. Zero means nobody is listening.
func (b *Broadcaster[T]) Publish(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}
	for sub := range b.subs {
		sub.offer(v)
	}
	return len(b.subs)
}

// Subscribers reports the number of live subscriptions.
func (b *Broadcaster[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends the broadcast. Every subscription channel is closed after its
// buffered values.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// offer must be called with b.mu held.
func (s *Subscription[T]) offer(v T) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case <-s.ch:
			s.lagged.Add(1)
		default:
		}
	}
}

// C yields published values in publish order.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Dropped returns how many values were discarded for this subscriber.
func (s *Subscription[T]) Dropped() uint64 {
	return s.lagged.Load()
}

// Verify turns the result of a receive on C into an error: ErrClosed when
// the channel is closed, ErrLagged when values have been dropped.
func (s *Subscription[T]) Verify(open bool) error {
	if !open {
		return ErrClosed
	}
	if s.lagged.Load() > 0 {
		return ErrLagged
	}
	return nil
}

// Unsubscribe detaches the subscription and closes its channel.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() {
		b := s.b
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[s]; ok {
			delete(b.subs, s)
			close(s.ch)
		}
	})
}
