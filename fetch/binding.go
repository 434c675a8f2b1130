package fetch

import (
	"context"
	"errors"
	"sync"

	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
)

var (
	// ErrUnbound is returned by Binding operations that need a key before Request was called.
	ErrUnbound = errors.New("binding has no requested key")

	// ErrNotReady is returned by Binding.PatchLocal when the bound key holds no loaded value.
	ErrNotReady = errors.New("no loaded value to patch")

	// ErrClosed is returned by a Binding after Close.
	ErrClosed = errors.New("binding is closed")
)

// Binding ties one consumer to one key of a Coordinator at a time.
// It forwards every state transition of the observed key to onChange and
// switches its subscription when the consumer moves to another key.
type Binding[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] struct {
	coordinator *Coordinator[K, V]
	onChange    func(fetchcache.State[V])

	mu          sync.Mutex
	key         K
	observing   bool
	requested   bool
	loader      fetchcache.Loader[K, V]
	unsubscribe func()
	closed      bool
}

// NewBinding creates a Binding that reports the observed key's states to onChange.
// onChange runs on the publishing goroutine and must not block.
func NewBinding[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](c *Coordinator[K, V], onChange func(fetchcache.State[V])) *Binding[K, V] {
	return &Binding[K, V]{coordinator: c, onChange: onChange}
}

// Observe subscribes to key, dropping the subscription of a previously observed key,
// and returns the key's current state.
func (b *Binding[K, V]) Observe(key K) fetchcache.State[V] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fetchcache.State[V]{}
	}
	b.observe(key)
	return b.coordinator.Snapshot(key)
}

func (b *Binding[K, V]) observe(key K) {
	if b.observing && b.key == key {
		return
	}
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	b.key = key
	b.observing = true
	b.unsubscribe = b.coordinator.Subscribe(key, b.onChange)
}

// Request observes key and loads it with loader, unless key is the key already requested and its state is initialized.
func (b *Binding[K, V]) Request(ctx context.Context, key K, loader fetchcache.Loader[K, V]) (fetchcache.State[V], error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fetchcache.State[V]{}, ErrClosed
	}
	sameKey := b.requested && b.key == key
	b.observe(key)
	b.requested = true
	b.loader = loader
	b.mu.Unlock()

	if sameKey {
		if state := b.coordinator.Snapshot(key); state.Initialized {
			return state, state.Err
		}
	}
	return b.coordinator.EnsureLoaded(ctx, key, loader)
}

// Refresh reloads the requested key, ignoring the cache.
func (b *Binding[K, V]) Refresh(ctx context.Context) (fetchcache.State[V], error) {
	key, loader, err := b.target()
	if err != nil {
		return fetchcache.State[V]{}, err
	}
	return b.coordinator.Refresh(ctx, key, loader)
}

// PatchLocal patches the requested key's loaded value without loading it again.
func (b *Binding[K, V]) PatchLocal(patch func(V) V) (fetchcache.State[V], error) {
	key, _, err := b.target()
	if err != nil {
		return fetchcache.State[V]{}, err
	}
	state, ok := b.coordinator.PatchLocal(key, patch)
	if !ok {
		return state, ErrNotReady
	}
	return state, nil
}

func (b *Binding[K, V]) target() (K, fetchcache.Loader[K, V], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var zero K
	switch {
	case b.closed:
		return zero, nil, ErrClosed
	case !b.requested:
		return zero, nil, ErrUnbound
	}
	return b.key, b.loader, nil
}

// State returns the current state of the observed key.
func (b *Binding[K, V]) State() fetchcache.State[V] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.observing {
		return fetchcache.State[V]{}
	}
	return b.coordinator.Snapshot(b.key)
}

// Key returns the observed key and whether there is one.
func (b *Binding[K, V]) Key() (K, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.key, b.observing
}

// Close drops the subscription. It is safe to call more than once.
func (b *Binding[K, V]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	b.observing = false
}
