// Package storetest provides generic test cases for fetchcache.CacheStore implementations.
package storetest

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
)

// Provider creates a store driven by the given clock and TTL, and a function releasing it.
type Provider[V fetchcache.ValueConstraint] func(clock fetchcache.Clock, ttl time.Duration) (fetchcache.CacheStore[uint8, V], func())

// BenchmarkPut benchmarks the Put method of the store.
func BenchmarkPut[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](b *testing.B, store fetchcache.CacheStore[K, V], keys []K) {
	var zero V
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Put(keys[i%len(keys)], zero)
	}
}

// BenchmarkGet benchmarks the Get method of the store on fresh entries.
func BenchmarkGet[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](b *testing.B, store fetchcache.CacheStore[K, V], keys []K) {
	var zero V
	for _, key := range keys {
		store.Put(key, zero)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Get(keys[i%len(keys)])
	}
}

type TestClonerStruct struct {
	value int8
}

func (s *TestClonerStruct) Clone() *TestClonerStruct {
	return &TestClonerStruct{value: s.value}
}

// TestCloneStruct tests that the store never hands out the pointer it was given or the one it holds.
func TestCloneStruct(t *testing.T, provider Provider[*TestClonerStruct]) {
	t.Run("CloneStruct", func(t *testing.T) {
		t.Parallel()

		store, release := provider(fetchcache.SystemClock, time.Hour)
		defer release()

		original := &TestClonerStruct{value: 1}
		store.Put(1, original)

		got := store.Get(1)
		if got == nil {
			t.Fatal("entry must exist")
		}
		if got.Value == original {
			t.Error("struct must be cloned, but got same that")
		}
		if df := cmp.Diff(original, got.Value, cmp.AllowUnexported(TestClonerStruct{})); df != "" {
			t.Errorf("struct diff=%s", df)
		}

		again := store.Get(1)
		if again.Value == got.Value {
			t.Error("struct must be cloned, but got same that")
		}

		original.value = 2
		if v := store.Get(1).Value.value; v != 1 {
			t.Errorf("stored value changed through caller pointer: got %d", v)
		}
	})
}

// TestConsistency tests concurrent Put/Get/Invalidate on distinct keys.
func TestConsistency(t *testing.T, provider Provider[int8]) {
	t.Run("Consistency", func(t *testing.T) {
		t.Parallel()

		store, release := provider(fetchcache.SystemClock, time.Hour)
		defer release()

		patterns := []fetchcache.Entry[uint8, int8]{
			{Key: 0, Value: 1},
			{Key: 1, Value: 2},
			{Key: 2, Value: 3},
			{Key: 3, Value: 4},
			{Key: 4, Value: 5},
			{Key: 251, Value: 124},
			{Key: 252, Value: 125},
			{Key: 253, Value: 126},
			{Key: 254, Value: 127},
			{Key: 255, Value: -128},
		}
		rand.Shuffle(len(patterns), func(i, j int) {
			patterns[i], patterns[j] = patterns[j], patterns[i]
		})

		var eg errgroup.Group
		for _, pattern := range patterns {
			eg.Go(func() error {
				if entry := store.Get(pattern.Key); entry != nil {
					return fmt.Errorf("unexpected exists value for key %d", pattern.Key)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}

		eg = errgroup.Group{}
		for _, pattern := range patterns {
			eg.Go(func() error {
				store.Put(pattern.Key, pattern.Value)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}
		if got := store.Len(); got != len(patterns) {
			t.Errorf("Len() = %d, want %d", got, len(patterns))
		}

		eg = errgroup.Group{}
		entries := make([]*fetchcache.CacheEntry[uint8, int8], len(patterns))
		for i, pattern := range patterns {
			eg.Go(func() error {
				entries[i] = store.Get(pattern.Key)
				if entries[i] == nil {
					return fmt.Errorf("missing value for key %d", pattern.Key)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}
		for i, pattern := range patterns {
			if df := cmp.Diff(pattern, entries[i].Entry); df != "" {
				t.Errorf("pattern[%d] key=%d entry diff=%s", i, pattern.Key, df)
			}
		}

		eg = errgroup.Group{}
		for _, pattern := range patterns[:5] {
			eg.Go(func() error {
				store.Invalidate(pattern.Key)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}
		for i, pattern := range patterns {
			got := store.Get(pattern.Key)
			if i < 5 && got != nil {
				t.Errorf("key %d must be invalidated", pattern.Key)
			} else if i >= 5 && got == nil {
				t.Errorf("key %d must survive", pattern.Key)
			}
		}

		store.Clear()
		if got := store.Len(); got != 0 {
			t.Errorf("Len() after Clear = %d, want 0", got)
		}
	})
}

// TestExpiry tests the single TTL boundary: fresh while now - storedAt < ttl.
func TestExpiry(t *testing.T, provider Provider[int8]) {
	t.Run("Expiry", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
		clock := fetchcache.NewManualClock(start)
		store, release := provider(clock, time.Second)
		defer release()

		store.Put(1, 10)
		want := &fetchcache.CacheEntry[uint8, int8]{
			Entry:    fetchcache.Entry[uint8, int8]{Key: 1, Value: 10},
			StoredAt: start,
		}
		if df := cmp.Diff(want, store.Get(1)); df != "" {
			t.Errorf("fresh entry diff=%s", df)
		}

		clock.Advance(999 * time.Millisecond)
		if store.Get(1) == nil {
			t.Error("entry must be fresh just before the TTL boundary")
		}

		clock.Advance(time.Millisecond)
		if got := store.Get(1); got != nil {
			t.Errorf("entry must expire at the TTL boundary, got %+v", got)
		}
		if got := store.Len(); got != 0 {
			t.Errorf("expired entry must be evicted, Len() = %d", got)
		}

		store.Put(1, 11)
		if got := store.Get(1); got == nil || got.Value != 11 || !got.StoredAt.Equal(clock.Now()) {
			t.Errorf("Put after expiry must store a fresh entry, got %+v", got)
		}
	})
}

// TestReplace tests that Replace overwrites values without moving StoredAt.
func TestReplace(t *testing.T, provider Provider[int8]) {
	t.Run("Replace", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
		clock := fetchcache.NewManualClock(start)
		store, release := provider(clock, time.Second)
		defer release()

		if store.Replace(1, 5) {
			t.Error("Replace must fail for an absent key")
		}
		if store.Get(1) != nil {
			t.Error("failed Replace must not create an entry")
		}

		store.Put(1, 10)
		clock.Advance(500 * time.Millisecond)
		if !store.Replace(1, 20) {
			t.Fatal("Replace must succeed for a fresh entry")
		}
		want := &fetchcache.CacheEntry[uint8, int8]{
			Entry:    fetchcache.Entry[uint8, int8]{Key: 1, Value: 20},
			StoredAt: start,
		}
		if df := cmp.Diff(want, store.Get(1)); df != "" {
			t.Errorf("replaced entry diff=%s", df)
		}

		clock.Advance(500 * time.Millisecond)
		if store.Replace(1, 30) {
			t.Error("Replace must fail once the original entry expired")
		}
		if store.Get(1) != nil {
			t.Error("patched entry must still expire on its original schedule")
		}
	})
}

// TestAll runs every int8 test case against the provider.
func TestAll(t *testing.T, provider Provider[int8]) {
	TestConsistency(t, provider)
	TestExpiry(t, provider)
	TestReplace(t, provider)
}
