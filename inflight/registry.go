package inflight

import (
	"context"
	"sync"
)

// Result is the outcome of one load.
type Result[V any] struct {
	Value V
	Err   error
}

// Future is the waiter side of an in-flight operation.
type Future[V any] struct {
	done   chan struct{}
	result Result[V]
}

func newFuture[V any]() *Future[V] {
	return &Future[V]{done: make(chan struct{})}
}

// Done returns a channel closed once the result is available.
func (f *Future[V]) Done() <-chan struct{} {
	return f.done
}

// Result returns the result. It blocks until the operation concludes.
func (f *Future[V]) Result() Result[V] {
	<-f.done
	return f.result
}

// Wait blocks until the operation concludes or ctx is done.
// Giving up on the wait does not affect the operation or the other waiters.
func (f *Future[V]) Wait(ctx context.Context) (Result[V], error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return Result[V]{}, ctx.Err()
	}
}

// Handle is the owner side of an in-flight operation.
type Handle[K comparable, V any] struct {
	registry *Registry[K, V]
	key      K
	future   *Future[V]
	once     sync.Once
}

// Key returns the key the operation was registered for.
func (h *Handle[K, V]) Key() K {
	return h.key
}

// Future returns the future resolved by Complete.
func (h *Handle[K, V]) Future() *Future[V] {
	return h.future
}

// Superseded reports whether the registry no longer maps the key to this operation,
// because it was forgotten or because a newer operation took the slot.
func (h *Handle[K, V]) Superseded() bool {
	h.registry.mu.Lock()
	defer h.registry.mu.Unlock()
	return h.registry.ops[h.key] != h.future
}

// Release frees the key's slot if this operation still owns it, and reports whether it did.
// The future stays unresolved until Complete, but the next TryBegin for the key starts a new operation.
func (h *Handle[K, V]) Release() bool {
	h.registry.mu.Lock()
	defer h.registry.mu.Unlock()

	if h.registry.ops[h.key] != h.future {
		return false
	}
	delete(h.registry.ops, h.key)
	return true
}

// Complete resolves the future with result and frees the key's slot if this operation still owns it.
// Only the first call has an effect; it reports whether this call was that one.
func (h *Handle[K, V]) Complete(result Result[V]) bool {
	completed := false
	h.once.Do(func() {
		completed = true
		h.Release()

		h.future.result = result
		close(h.future.done)
	})
	return completed
}

// Registry maps keys to their in-flight operation.
// The zero value is ready to use.
type Registry[K comparable, V any] struct {
	mu  sync.Mutex
	ops map[K]*Future[V]
}

// TryBegin registers a new operation for key unless one is already in flight.
// Exactly one of the returned values is non-nil: a Handle the caller must Complete,
// or the Future of the operation already registered.
func (r *Registry[K, V]) TryBegin(key K) (*Handle[K, V], *Future[V]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.ops[key]; ok {
		return nil, f
	}
	if r.ops == nil {
		r.ops = map[K]*Future[V]{}
	}

	f := newFuture[V]()
	r.ops[key] = f
	return &Handle[K, V]{registry: r, key: key, future: f}, nil
}

// Lookup returns the future in flight for key, or nil.
func (r *Registry[K, V]) Lookup(key K) *Future[V] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops[key]
}

// Forget drops the slot for key without resolving it.
// Waiters already holding the future still receive its result; the next TryBegin starts a new operation.
func (r *Registry[K, V]) Forget(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ops, key)
}

// Reset drops every slot without resolving them.
func (r *Registry[K, V]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.ops)
}

// Len returns the number of operations in flight.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}
