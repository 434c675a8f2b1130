package fetchcache

import (
	"context"
	"time"
)

// KeyConstraint is an interface for key constraints.
type KeyConstraint interface {
	comparable
}

// ValueConstraint is an interface for value constraints.
type ValueConstraint interface {
	any
}

// Entry is a key-value pair.
type Entry[K KeyConstraint, V ValueConstraint] struct {
	// Key is the key of the entry.
	Key K

	// Value is the value associated with the key.
	Value V
}

// CacheEntry is a key-value pair with the time it was stored.
type CacheEntry[K KeyConstraint, V ValueConstraint] struct {
	Entry[K, V]

	// StoredAt is the time the value was put into the store.
	// Freshness is always measured from StoredAt; patching the value does not move it.
	StoredAt time.Time
}

// CacheStore is an interface for a TTL-bound cache store.
// Implementations must be thread-safe and must not block on I/O.
type CacheStore[K KeyConstraint, V ValueConstraint] interface {
	// Get returns the entry for the key only if it is younger than the store's TTL.
	// An expired entry is evicted and nil is returned.
	// It must clone the returned entry before returning it.
	Get(K) *CacheEntry[K, V]

	// Put stores the value with the current time, replacing any prior entry.
	// It must clone the value before storing it.
	Put(K, V)

	// Replace overwrites the value of a fresh entry while keeping its StoredAt.
	// It reports false when there is no fresh entry for the key.
	Replace(K, V) bool

	// Invalidate removes any entry for the key.
	Invalidate(K)

	// Clear removes all entries.
	Clear()

	// Len returns the number of entries held, including expired ones not yet evicted.
	Len() int
}

// Loader is an interface for loading a value from the source of truth.
// It is supplied by callers and invoked at most once per key at a time.
type Loader[K KeyConstraint, V ValueConstraint] interface {
	// Load fetches the value for the key.
	// Returning an error wrapping ErrNotFound reports that the entity does not exist.
	Load(context.Context, K) (V, error)
}

// LoaderFunc is a function type that implements the Loader interface.
type LoaderFunc[K KeyConstraint, V ValueConstraint] func(context.Context, K) (V, error)

// Load calls the function.
func (f LoaderFunc[K, V]) Load(ctx context.Context, key K) (V, error) {
	return f(ctx, key)
}

// State is the externally observable snapshot of a key.
// It is broadcast to subscribers after every transition.
type State[V ValueConstraint] struct {
	// Value is the last successfully loaded (or locally patched) value.
	// It is the zero value of V before the first load and after a failed load.
	Value V

	// IsLoading is true while a load for the key is in flight.
	IsLoading bool

	// Err is the *LoadError of the last concluded load, if it failed.
	Err error

	// Initialized is true once a load has concluded, successfully or not.
	Initialized bool
}

// ErrorKind returns the kind of the state's error, or KindNone.
func (s State[V]) ErrorKind() ErrorKind {
	return KindOf(s.Err)
}

// Ready reports whether the state holds a successfully loaded value.
func (s State[V]) Ready() bool {
	return s.Initialized && s.Err == nil
}
