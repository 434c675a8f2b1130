package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
	"github.com/gabrielnfc/eivoucasar-sub001/hub"
	"github.com/gabrielnfc/eivoucasar-sub001/inflight"
	"github.com/gabrielnfc/eivoucasar-sub001/internal/panicutil"
	"github.com/gabrielnfc/eivoucasar-sub001/store/memstore"
)

// Coordinator loads keyed entities through a cache store, deduplicating concurrent loads of a key
// and broadcasting each key's state transitions to its subscribers.
// Create one per logical cache domain and share it with every consumer.
type Coordinator[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] struct {
	store       fetchcache.CacheStore[K, V]
	ttl         time.Duration
	clock       fetchcache.Clock
	cloner      fetchcache.ValueCloner[V]
	metrics     fetchcache.Metrics
	logger      *slog.Logger
	context     func() context.Context
	loadTimeout time.Duration

	flights inflight.Registry[K, V]
	hub     hub.Hub[K, fetchcache.State[V]]

	// mu makes the cache check and flight registration one step, and orders state transitions.
	mu     sync.Mutex
	states map[K]fetchcache.State[V]
}

// NewCoordinator creates a new Coordinator.
// Without options it caches in a memstore.Store with memstore.DefaultTTL and clones values with
// fetchcache.DefaultValueCloner, which panics for value types that cannot be cloned: pass WithCloner for those.
func NewCoordinator[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](opts ...Option[K, V]) *Coordinator[K, V] {
	c := &Coordinator[K, V]{
		ttl:     memstore.DefaultTTL,
		clock:   fetchcache.SystemClock,
		metrics: fetchcache.NoopMetrics{},
		logger:  slog.New(slog.DiscardHandler),
		context: context.Background,
		states:  map[K]fetchcache.State[V]{},
	}
	for _, o := range opts {
		o.apply(c)
	}
	if c.cloner == nil {
		c.cloner = fetchcache.DefaultValueCloner[V]()
	}
	if c.store == nil {
		c.store = memstore.NewInMemoryStore(
			memstore.WithTTL[K, V](c.ttl),
			memstore.WithClock[K, V](c.clock),
			memstore.WithCloner[K, V](c.cloner),
		)
	}
	return c
}

// EnsureLoaded returns the state of key, loading it with loader unless a fresh cached value exists.
// Concurrent calls for one key share a single loader invocation and receive the identical result.
//
// Subscribers normally see the load's terminal state before the callers return. When the key's states
// are being delivered by another goroutine at that moment, such as a subscriber callback that is still
// running, the callers may return first and the terminal state reaches subscribers once that delivery resumes.
//
// The returned error is the state's Err when the load failed, or ctx.Err() when ctx ended before the load
// concluded. Giving up on the wait does not cancel the load: it keeps running for the other callers and
// still publishes its result.
func (c *Coordinator[K, V]) EnsureLoaded(ctx context.Context, key K, loader fetchcache.Loader[K, V]) (fetchcache.State[V], error) {
	return c.ensureLoaded(ctx, key, loader, false)
}

// Refresh is EnsureLoaded ignoring the cache. A load already in flight for key is joined rather than duplicated.
func (c *Coordinator[K, V]) Refresh(ctx context.Context, key K, loader fetchcache.Loader[K, V]) (fetchcache.State[V], error) {
	return c.ensureLoaded(ctx, key, loader, true)
}

func (c *Coordinator[K, V]) ensureLoaded(ctx context.Context, key K, loader fetchcache.Loader[K, V], bypassCache bool) (fetchcache.State[V], error) {
	c.mu.Lock()
	if !bypassCache {
		if entry := c.store.Get(key); entry != nil {
			state := fetchcache.State[V]{Value: entry.Value, Initialized: true}
			// a refresh in flight owns the next transition
			if c.flights.Lookup(key) == nil {
				c.transition(key, state)
			}
			c.mu.Unlock()

			c.metrics.Hit()
			c.hub.Flush(key)
			return state, nil
		}
		c.metrics.Miss()
	}

	handle, future := c.flights.TryBegin(key)
	if handle == nil {
		c.metrics.Join()
	}
	if prev := c.states[key]; !prev.IsLoading {
		c.transition(key, fetchcache.State[V]{
			Value:       prev.Value,
			IsLoading:   true,
			Initialized: prev.Initialized,
		})
	}
	c.mu.Unlock()
	c.hub.Flush(key)

	if handle != nil {
		future = handle.Future()
		go c.load(handle, loader)
	}

	result, err := future.Wait(ctx)
	if err != nil {
		return c.Snapshot(key), err
	}
	state := resultState(result)
	return state, state.Err
}

// load runs loader for the handle's key and concludes the flight whatever happens to the loader.
func (c *Coordinator[K, V]) load(handle *inflight.Handle[K, V], loader fetchcache.Loader[K, V]) {
	key := handle.Key()
	ctx := c.context()
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.loadTimeout)
		defer cancel()
	}

	startedAt := c.clock.Now()
	c.logger.Debug("loading entity", slog.Any("key", key))

	guard := panicutil.Guard{
		OnGoexit: func() {
			var zero V
			c.conclude(handle, startedAt, zero, fmt.Errorf("%w: loader called runtime.Goexit", fetchcache.ErrInternal))
		},
	}

	var value V
	err := guard.Run(func() (err error) {
		value, err = loader.Load(ctx, key)
		return
	})
	c.conclude(handle, startedAt, value, err)
}

// conclude stores, publishes and resolves the outcome of a load.
// A flight forgotten by Invalidate or Clear never populates the cache, and only publishes when no newer flight
// for the key is running.
// The flight leaves the registry together with its terminal state, so a call made from then on,
// subscriber callbacks included, starts a new load instead of joining a finished one.
func (c *Coordinator[K, V]) conclude(handle *inflight.Handle[K, V], startedAt time.Time, value V, err error) {
	key := handle.Key()
	latency := c.clock.Now().Sub(startedAt)
	c.metrics.Loaded(latency, err)

	var result inflight.Result[V]
	if err != nil {
		loadErr := fetchcache.Classify(key, err)
		result.Err = loadErr
		if loadErr.Kind == fetchcache.KindInternal {
			c.logger.Error("loader crashed", slog.Any("key", key), slog.Any("error", err))
		} else {
			c.logger.Warn("load failed", slog.Any("key", key), slog.String("kind", loadErr.Kind.String()), slog.Any("error", err))
		}
	} else {
		result.Value = value
		c.logger.Debug("loaded entity", slog.Any("key", key), slog.Duration("latency", latency))
	}

	c.mu.Lock()
	owned := handle.Release()
	publish := owned || c.flights.Lookup(key) == nil
	if owned && result.Err == nil {
		c.store.Put(key, result.Value)
	}
	if publish {
		c.transition(key, resultState(result))
	}
	c.mu.Unlock()

	if publish {
		c.hub.Flush(key)
	}
	handle.Complete(result)
}

// Invalidate drops the cached value and the in-flight registration of key, so the next call loads again.
// A load already running is not cancelled; its callers still receive its result.
func (c *Coordinator[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Invalidate(key)
	c.flights.Forget(key)
}

// Clear drops every cached value and in-flight registration. Published states are kept.
func (c *Coordinator[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Clear()
	c.flights.Reset()
}

// Snapshot returns the last published state of key.
// A key never requested yields the zero State, whose Initialized is false.
func (c *Coordinator[K, V]) Snapshot(key K) fetchcache.State[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[key]
}

// Subscribe registers fn for every state transition of key and returns the function that unsubscribes it.
// Callbacks run synchronously on the publishing goroutine and must not block.
func (c *Coordinator[K, V]) Subscribe(key K, fn func(fetchcache.State[V])) (unsubscribe func()) {
	return c.hub.Subscribe(key, fn)
}

// PatchLocal applies patch to a clone of key's current value and publishes the result without loading.
// The cached entry, if still fresh, takes the patched value but keeps its original StoredAt,
// so the patch is served until the entry expires or the key is refreshed.
// It reports false, leaving everything untouched, when key holds no successfully loaded value.
// patch runs under the coordinator's lock and must not call back into the Coordinator.
func (c *Coordinator[K, V]) PatchLocal(key K, patch func(V) V) (fetchcache.State[V], bool) {
	c.mu.Lock()
	state := c.states[key]
	if !state.Initialized || state.Err != nil {
		c.mu.Unlock()
		return state, false
	}

	state.Value = patch(c.cloner.CloneValue(state.Value))
	c.store.Replace(key, state.Value)
	c.transition(key, state)
	c.mu.Unlock()

	c.metrics.Patched()
	c.hub.Flush(key)
	return state, true
}

// InFlight returns the number of loads currently registered.
func (c *Coordinator[K, V]) InFlight() int {
	return c.flights.Len()
}

// transition records state as key's current state and queues it for subscribers.
// c.mu must be held; the caller flushes the hub after releasing it.
func (c *Coordinator[K, V]) transition(key K, state fetchcache.State[V]) {
	c.states[key] = state
	c.hub.Post(key, state)
}

func resultState[V fetchcache.ValueConstraint](result inflight.Result[V]) fetchcache.State[V] {
	if result.Err != nil {
		return fetchcache.State[V]{Err: result.Err, Initialized: true}
	}
	return fetchcache.State[V]{Value: result.Value, Initialized: true}
}
