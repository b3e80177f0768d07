// Package mapview holds the interactive query pipeline: the viewport, the
// extent-driven feature sources, the layer registry, the draw interaction and
// the manager that swaps the query layer after a draw.
//
// All state in this package is owned by a single event loop. Network fetches
// run on their own goroutines and hand their results back through a Poster;
// nothing mutates a Viewport, Registry or FeatureSource from anywhere else.
package mapview

import (
	"context"
	"sync"
)

// Poster schedules fn on the goroutine that owns the map state.
// It returns false once the owner has shut down, in which case fn never runs.
type Poster interface {
	Post(fn func()) bool
}

// Loop is a serial executor for posted callbacks.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Run drains posted callbacks in order until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		case <-l.wake:
			l.drain()
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()
		if len(batch) == 0 || closed {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrDisposed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrDisposed
	}
}

// Close stops the loop. Pending callbacks are dropped and later posts are refused.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.queue = nil
	close(l.done)
}

// Subscription detaches a listener. Unsubscribe is idempotent.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// listeners is an ordered set of callbacks. Loop-owned, so unsynchronized.
type listeners[T any] struct {
	next int
	fns  map[int]func(T)
	ids  []int
}

func (ls *listeners[T]) add(fn func(T)) *Subscription {
	if ls.fns == nil {
		ls.fns = make(map[int]func(T))
	}
	id := ls.next
	ls.next++
	ls.fns[id] = fn
	ls.ids = append(ls.ids, id)
	return &Subscription{cancel: func() { ls.remove(id) }}
}

func (ls *listeners[T]) remove(id int) {
	if _, ok := ls.fns[id]; !ok {
		return
	}
	delete(ls.fns, id)
	for i, v := range ls.ids {
		if v == id {
			ls.ids = append(ls.ids[:i], ls.ids[i+1:]...)
			break
		}
	}
}

func (ls *listeners[T]) emit(v T) {
	ids := append([]int(nil), ls.ids...)
	for _, id := range ids {
		if fn, ok := ls.fns[id]; ok {
			fn(v)
		}
	}
}

func (ls *listeners[T]) len() int { return len(ls.fns) }

func (ls *listeners[T]) clear() {
	ls.fns = nil
	ls.ids = nil
}
