package store

import (
	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
)

var _ fetchcache.CacheStore[uint8, struct{}] = (*FunctionsStore[uint8, struct{}])(nil)

// FunctionsStore is a fetchcache.CacheStore implementation that uses functions to perform the store operations.
// A nil function makes the operation a no-op: Get finds nothing, Replace reports false and Len returns 0.
type FunctionsStore[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] struct {
	// GetFunc returns the fresh entry for the key, or nil.
	GetFunc func(K) *fetchcache.CacheEntry[K, V]

	// PutFunc stores the value, replacing any prior entry.
	PutFunc func(K, V)

	// ReplaceFunc overwrites the value of a fresh entry keeping its StoredAt.
	ReplaceFunc func(K, V) bool

	// InvalidateFunc removes the entry for the key.
	InvalidateFunc func(K)

	// ClearFunc removes all entries.
	ClearFunc func()

	// LenFunc returns the number of entries.
	LenFunc func() int
}

// Get calls the GetFunc function.
func (s *FunctionsStore[K, V]) Get(key K) *fetchcache.CacheEntry[K, V] {
	if s.GetFunc == nil {
		return nil
	}
	return s.GetFunc(key)
}

// Put calls the PutFunc function.
func (s *FunctionsStore[K, V]) Put(key K, value V) {
	if s.PutFunc != nil {
		s.PutFunc(key, value)
	}
}

// Replace calls the ReplaceFunc function.
func (s *FunctionsStore[K, V]) Replace(key K, value V) bool {
	if s.ReplaceFunc == nil {
		return false
	}
	return s.ReplaceFunc(key, value)
}

// Invalidate calls the InvalidateFunc function.
func (s *FunctionsStore[K, V]) Invalidate(key K) {
	if s.InvalidateFunc != nil {
		s.InvalidateFunc(key)
	}
}

// Clear calls the ClearFunc function.
func (s *FunctionsStore[K, V]) Clear() {
	if s.ClearFunc != nil {
		s.ClearFunc()
	}
}

// Len calls the LenFunc function.
func (s *FunctionsStore[K, V]) Len() int {
	if s.LenFunc == nil {
		return 0
	}
	return s.LenFunc()
}

var _ fetchcache.CacheStore[uint8, struct{}] = (*ObservedStore[uint8, struct{}])(nil)

// ObservedStore is a decorator for a fetchcache.CacheStore that reports every lookup to OnGet.
type ObservedStore[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] struct {
	// Store is the underlying store that this decorator wraps.
	Store fetchcache.CacheStore[K, V]

	// OnGet is called after every Get with whether a fresh entry was found.
	OnGet func(key K, found bool)
}

// Get retrieves the entry from the underlying store and reports the outcome to OnGet.
func (s *ObservedStore[K, V]) Get(key K) *fetchcache.CacheEntry[K, V] {
	entry := s.Store.Get(key)
	if s.OnGet != nil {
		s.OnGet(key, entry != nil)
	}
	return entry
}

// Put stores the value in the underlying store.
func (s *ObservedStore[K, V]) Put(key K, value V) {
	s.Store.Put(key, value)
}

// Replace replaces the value in the underlying store.
func (s *ObservedStore[K, V]) Replace(key K, value V) bool {
	return s.Store.Replace(key, value)
}

// Invalidate removes the entry from the underlying store.
func (s *ObservedStore[K, V]) Invalidate(key K) {
	s.Store.Invalidate(key)
}

// Clear removes all entries from the underlying store.
func (s *ObservedStore[K, V]) Clear() {
	s.Store.Clear()
}

// Len returns the number of entries of the underlying store.
func (s *ObservedStore[K, V]) Len() int {
	return s.Store.Len()
}
