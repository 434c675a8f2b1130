package fetch

import (
	"context"
	"log/slog"
	"time"

	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
)

// Option is the interface for the options of the Coordinator.
type Option[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] interface {
	apply(*Coordinator[K, V])
}

type optionFunc[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] func(*Coordinator[K, V])

func (f optionFunc[K, V]) apply(c *Coordinator[K, V]) {
	f(c)
}

// WithStore sets the cache store. WithTTL has no effect when a store is given.
// The default store is an in-memory store using the coordinator's clock and cloner.
func WithStore[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](store fetchcache.CacheStore[K, V]) Option[K, V] {
	return optionFunc[K, V](func(c *Coordinator[K, V]) {
		c.store = store
	})
}

// WithTTL sets the freshness window of the default store.
func WithTTL[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](ttl time.Duration) Option[K, V] {
	if ttl <= 0 {
		panic("ttl must be positive")
	}
	return optionFunc[K, V](func(c *Coordinator[K, V]) {
		c.ttl = ttl
	})
}

// WithClock sets the clock used by the default store and for load latency.
func WithClock[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](clock fetchcache.Clock) Option[K, V] {
	return optionFunc[K, V](func(c *Coordinator[K, V]) {
		c.clock = clock
	})
}

// WithCloner sets the value cloner.
// The default value cloner is fetchcache.DefaultValueCloner.
func WithCloner[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](cloner fetchcache.ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(c *Coordinator[K, V]) {
		c.cloner = cloner
	})
}

// WithMetrics sets the instrumentation sink.
func WithMetrics[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](metrics fetchcache.Metrics) Option[K, V] {
	return optionFunc[K, V](func(c *Coordinator[K, V]) {
		c.metrics = metrics
	})
}

// WithLogger sets the logger. Nothing is logged by default.
func WithLogger[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](logger *slog.Logger) Option[K, V] {
	return optionFunc[K, V](func(c *Coordinator[K, V]) {
		c.logger = logger
	})
}

// WithBackgroundContextProvider sets the provider of the context loaders run with.
// Loads are shared by every caller of a key, so they never run with a caller's context.
// The default provider is context.Background.
func WithBackgroundContextProvider[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](provider func() context.Context) Option[K, V] {
	return optionFunc[K, V](func(c *Coordinator[K, V]) {
		c.context = provider
	})
}

// WithLoadTimeout bounds every loader invocation. Zero means no bound, which is the default.
func WithLoadTimeout[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](timeout time.Duration) Option[K, V] {
	return optionFunc[K, V](func(c *Coordinator[K, V]) {
		c.loadTimeout = timeout
	})
}
