// Package hub fans state transitions out to per-key observers.
//
// Each key has a topic holding its subscribers and a queue of states waiting to be delivered.
// States are delivered in the order they were posted, to every subscriber in registration order,
// by a single draining goroutine per topic at a time. A publisher that finds the topic already
// draining (another goroutine, or a callback publishing re-entrantly) only enqueues; the active
// drainer delivers its state before returning.
package hub

import (
	"slices"
	"sync"
	"sync/atomic"
)

type subscriber[S any] struct {
	fn      func(S)
	removed atomic.Bool
}

type topic[S any] struct {
	mu          sync.Mutex
	subscribers []*subscriber[S]
	queue       []S
	draining    bool
}

// Hub is a keyed observer registry.
// The zero value is ready to use.
type Hub[K comparable, S any] struct {
	mu     sync.Mutex
	topics map[K]*topic[S]
}

func (h *Hub[K, S]) topic(key K, create bool) *topic[S] {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[key]
	if !ok && create {
		if h.topics == nil {
			h.topics = map[K]*topic[S]{}
		}
		t = &topic[S]{}
		h.topics[key] = t
	}
	return t
}

// Subscribe registers fn for states published on key.
// The returned function unsubscribes; calling it more than once is harmless, and it may be called from within fn.
func (h *Hub[K, S]) Subscribe(key K, fn func(S)) (unsubscribe func()) {
	sub := &subscriber[S]{fn: fn}
	for {
		t := h.topic(key, true)
		t.mu.Lock()
		// a topic dropped by a concurrent unsubscribe must not be reused
		h.mu.Lock()
		live := h.topics[key] == t
		h.mu.Unlock()
		if !live {
			t.mu.Unlock()
			continue
		}
		t.subscribers = append(t.subscribers, sub)
		t.mu.Unlock()
		break
	}

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(key, sub) })
	}
}

func (h *Hub[K, S]) remove(key K, sub *subscriber[S]) {
	sub.removed.Store(true)
	t := h.topic(key, false)
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// copy on write: a drainer may be iterating over the previous slice
	t.subscribers = slices.DeleteFunc(slices.Clone(t.subscribers), func(s *subscriber[S]) bool {
		return s == sub
	})
	if len(t.subscribers) == 0 && len(t.queue) == 0 && !t.draining {
		h.mu.Lock()
		if h.topics[key] == t {
			delete(h.topics, key)
		}
		h.mu.Unlock()
	}
}

// Post enqueues state for delivery on key without delivering it.
// States posted for one key are delivered in Post order. Keys without subscribers drop the state.
func (h *Hub[K, S]) Post(key K, state S) {
	t := h.topic(key, false)
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.subscribers) == 0 {
		return
	}
	t.queue = append(t.queue, state)
}

// Flush delivers the states queued for key unless another goroutine is already delivering them.
// In that case Flush returns at once, possibly before the queued states reach the subscribers.
func (h *Hub[K, S]) Flush(key K) {
	t := h.topic(key, false)
	if t == nil {
		return
	}

	t.mu.Lock()
	if t.draining {
		t.mu.Unlock()
		return
	}
	t.draining = true

	for len(t.queue) > 0 {
		state := t.queue[0]
		var zero S
		t.queue[0] = zero
		t.queue = t.queue[1:]
		subs := t.subscribers
		t.mu.Unlock()

		for _, sub := range subs {
			if !sub.removed.Load() {
				sub.fn(state)
			}
		}

		t.mu.Lock()
	}
	t.draining = false
	t.queue = nil
	if len(t.subscribers) == 0 {
		h.mu.Lock()
		if h.topics[key] == t {
			delete(h.topics, key)
		}
		h.mu.Unlock()
	}
	t.mu.Unlock()
}

// Publish posts state on key and flushes it.
func (h *Hub[K, S]) Publish(key K, state S) {
	h.Post(key, state)
	h.Flush(key)
}

// Subscribers returns the number of subscribers of key.
func (h *Hub[K, S]) Subscribers(key K) int {
	t := h.topic(key, false)
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subscribers)
}

// Keys returns the number of keys with at least one subscriber or pending state.
func (h *Hub[K, S]) Keys() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics)
}
