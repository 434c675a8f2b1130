package memstore

import (
	"time"

	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
	"github.com/gabrielnfc/eivoucasar-sub001/internal/keyhash"
)

// DefaultBucketsSize is the default number of buckets in the store.
var DefaultBucketsSize = 64

// DefaultTTL is how long an entry stays fresh unless WithTTL says otherwise.
var DefaultTTL = 30 * time.Second

// Option is the interface for the options of the in-memory store.
type Option[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] interface {
	apply(*options[K, V])
}

type optionFunc[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] func(*options[K, V])

func (f optionFunc[K, V]) apply(o *options[K, V]) {
	f(o)
}

// WithTTL sets how long an entry stays fresh after it was stored.
// The TTL must be positive.
func WithTTL[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](ttl time.Duration) Option[K, V] {
	if ttl <= 0 {
		panic("ttl must be positive")
	}
	return optionFunc[K, V](func(o *options[K, V]) {
		o.ttl = ttl
	})
}

// WithKeyHash sets the key hash function used to pick a bucket.
func WithKeyHash[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](f func(K) int) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.hashKey = f
	})
}

// WithBucketsSize sets the number of buckets in the store.
// The number of buckets must be a natural number.
func WithBucketsSize[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](bucketsSize int) Option[K, V] {
	if bucketsSize <= 0 {
		panic("bucketSize must be natural number")
	}
	return optionFunc[K, V](func(o *options[K, V]) {
		o.bucketsSize = bucketsSize
	})
}

// WithClock sets the clock to the store.
func WithClock[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](clock fetchcache.Clock) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.clock = clock
	})
}

// WithCloner sets the value cloner to the store.
func WithCloner[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint](cloner fetchcache.ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.cloner = cloner
	})
}

type options[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] struct {
	ttl         time.Duration
	hashKey     func(K) int
	bucketsSize int
	clock       fetchcache.Clock
	cloner      fetchcache.ValueCloner[V]
}

func defaultOptions[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint]() options[K, V] {
	return options[K, V]{
		ttl:         DefaultTTL,
		bucketsSize: DefaultBucketsSize,
		clock:       fetchcache.SystemClock,
	}
}

func (o *options[K, V]) complete() {
	if o.hashKey == nil && o.bucketsSize > 1 {
		o.hashKey = keyhash.For[K]()
	}
	if o.cloner == nil {
		o.cloner = fetchcache.DefaultValueCloner[V]()
	}
}
