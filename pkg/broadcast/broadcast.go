package broadcast

import (
	"context"
	"sync"
)

// Broadcaster fans values out to all active subscribers. All methods are safe
// for concurrent use.
type Broadcaster[T any] struct {
	mu     sync.RWMutex
	subs   map[*Subscriber[T]]struct{}
	buffer int
	closed bool
	wg     sync.WaitGroup
}

// New creates a broadcaster whose subscribers buffer up to buffer values.
// A minimum buffer of 1 is enforced so sends stay non-blocking.
func New[T any](buffer int) *Broadcaster[T] {
	return &Broadcaster[T]{
		subs:   make(map[*Subscriber[T]]struct{}),
		buffer: max(buffer, 1),
	}
}

// Subscribe registers a new subscriber. The subscription is detached when ctx
// is cancelled. Subscribing to a closed broadcaster returns an already-closed
// subscriber.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) *Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber[T]{ch: make(chan T, b.buffer)}
	if b.closed {
		sub.close()
		return sub
	}
	b.subs[sub] = struct{}{}

	if ctx.Done() != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			<-ctx.Done()
			b.detach(sub)
		}()
	}
	return sub
}

// Publish delivers v to every subscriber that has buffer space. Subscribers
// that cannot keep up are detached rather than blocking the publisher.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for sub := range b.subs {
		if !sub.send(v) {
			go b.detach(sub)
		}
	}
}

// Close shuts down the broadcaster and closes all subscriber channels.
// Idempotent.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.close()
	}
	clear(b.subs)
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Broadcaster[T]) detach(sub *Subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
	sub.close()
}

// Subscriber receives broadcast values on its channel until it is detached or
// the broadcaster closes.
type Subscriber[T any] struct {
	ch     chan T
	mu     sync.RWMutex
	closed bool
}

// C returns the receive channel. It is closed when the subscription ends.
func (s *Subscriber[T]) C() <-chan T {
	return s.ch
}

func (s *Subscriber[T]) send(v T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- v:
		return true
	default:
		return false
	}
}

func (s *Subscriber[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
