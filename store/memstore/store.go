package memstore

import (
	"sync"
	"time"

	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
)

type bucket[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] struct {
	mu sync.RWMutex
	m  map[K]*fetchcache.CacheEntry[K, V]
}

// Store is an in-memory, bucketed fetchcache.CacheStore.
type Store[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] struct {
	buckets []*bucket[K, V]
	options options[K, V]
}

var _ fetchcache.CacheStore[uint8, struct{}] = (*Store[uint8, struct{}])(nil)

// NewInMemoryStore creates a new in-memory store.
// Without options it holds DefaultBucketsSize buckets, expires entries after DefaultTTL,
// and clones values with fetchcache.DefaultValueCloner.
func NewInMemoryStore[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](opts ...Option[K, V]) *Store[K, V] {
	options := defaultOptions[K, V]()
	for _, opt := range opts {
		opt.apply(&options)
	}
	options.complete()

	buckets := make([]*bucket[K, V], options.bucketsSize)
	for i := range buckets {
		buckets[i] = &bucket[K, V]{m: map[K]*fetchcache.CacheEntry[K, V]{}}
	}
	return &Store[K, V]{
		buckets: buckets,
		options: options,
	}
}

// TTL returns the freshness window of the store.
func (s *Store[K, V]) TTL() time.Duration {
	return s.options.ttl
}

// resolveBucket returns the bucket that corresponds to the given key.
func (s *Store[K, V]) resolveBucket(key K) *bucket[K, V] {
	if len(s.buckets) == 1 {
		return s.buckets[0]
	}
	index := s.options.hashKey(key) % len(s.buckets)
	if index < 0 {
		index *= -1
	}
	return s.buckets[index]
}

// fresh reports whether an entry stored at storedAt is still inside the TTL window at now.
func (s *Store[K, V]) fresh(storedAt, now time.Time) bool {
	return now.Sub(storedAt) < s.options.ttl
}

func (s *Store[K, V]) Get(key K) *fetchcache.CacheEntry[K, V] {
	b := s.resolveBucket(key)
	now := s.options.clock.Now()

	b.mu.RLock()
	v, ok := b.m[key]
	if ok && s.fresh(v.StoredAt, now) {
		defer b.mu.RUnlock()
		return s.clone(v)
	}
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// another writer may have replaced the entry between the two locks
	if v, ok := b.m[key]; ok {
		if s.fresh(v.StoredAt, now) {
			return s.clone(v)
		}
		delete(b.m, key)
	}
	return nil
}

func (s *Store[K, V]) Put(key K, value V) {
	b := s.resolveBucket(key)
	entry := &fetchcache.CacheEntry[K, V]{
		Entry: fetchcache.Entry[K, V]{
			Key:   key,
			Value: s.options.cloner.CloneValue(value),
		},
		StoredAt: s.options.clock.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[key] = entry
}

func (s *Store[K, V]) Replace(key K, value V) bool {
	b := s.resolveBucket(key)
	now := s.options.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.m[key]
	if !ok {
		return false
	}
	if !s.fresh(v.StoredAt, now) {
		delete(b.m, key)
		return false
	}
	b.m[key] = &fetchcache.CacheEntry[K, V]{
		Entry: fetchcache.Entry[K, V]{
			Key:   key,
			Value: s.options.cloner.CloneValue(value),
		},
		StoredAt: v.StoredAt,
	}
	return true
}

func (s *Store[K, V]) Invalidate(key K) {
	b := s.resolveBucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, key)
}

func (s *Store[K, V]) Clear() {
	for _, b := range s.buckets {
		b.mu.Lock()
		clear(b.m)
		b.mu.Unlock()
	}
}

func (s *Store[K, V]) Len() int {
	n := 0
	for _, b := range s.buckets {
		b.mu.RLock()
		n += len(b.m)
		b.mu.RUnlock()
	}
	return n
}

func (s *Store[K, V]) clone(v *fetchcache.CacheEntry[K, V]) *fetchcache.CacheEntry[K, V] {
	return &fetchcache.CacheEntry[K, V]{
		Entry: fetchcache.Entry[K, V]{
			Key:   v.Key,
			Value: s.options.cloner.CloneValue(v.Value),
		},
		StoredAt: v.StoredAt,
	}
}
