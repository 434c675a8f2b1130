package fetchcache

import (
	"sync/atomic"
	"time"
)

// Metrics receives instrumentation events from the coordinator.
// Implementations must be thread-safe and must not block.
type Metrics interface {
	// Hit is called when a fresh cache entry is served without invoking the loader.
	Hit()

	// Miss is called when no fresh cache entry exists and a load is needed.
	Miss()

	// Join is called when a caller attaches to a load already in flight.
	Join()

	// Loaded is called when a loader invocation concludes.
	Loaded(latency time.Duration, err error)

	// Patched is called when a cached value is patched locally.
	Patched()
}

// NoopMetrics ignores all events.
type NoopMetrics struct{}

var _ Metrics = NoopMetrics{}

func (NoopMetrics) Hit()                        {}
func (NoopMetrics) Miss()                       {}
func (NoopMetrics) Join()                       {}
func (NoopMetrics) Loaded(time.Duration, error) {}
func (NoopMetrics) Patched()                    {}

// Stats is a point-in-time copy of Counters.
type Stats struct {
	Hits         uint64
	Misses       uint64
	Joins        uint64
	Loads        uint64
	LoadFailures uint64
	Patches      uint64
	LoadTime     time.Duration
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// MeanLoadTime returns the average loader latency, or 0 before any load.
func (s Stats) MeanLoadTime() time.Duration {
	if s.Loads == 0 {
		return 0
	}
	return s.LoadTime / time.Duration(s.Loads)
}

// Counters is a Metrics implementation backed by atomic counters.
type Counters struct {
	hits         atomic.Uint64
	misses       atomic.Uint64
	joins        atomic.Uint64
	loads        atomic.Uint64
	loadFailures atomic.Uint64
	patches      atomic.Uint64
	loadNanos    atomic.Int64
}

var _ Metrics = (*Counters)(nil)

func (c *Counters) Hit()  { c.hits.Add(1) }
func (c *Counters) Miss() { c.misses.Add(1) }
func (c *Counters) Join() { c.joins.Add(1) }

func (c *Counters) Loaded(latency time.Duration, err error) {
	c.loads.Add(1)
	c.loadNanos.Add(int64(latency))
	if err != nil {
		c.loadFailures.Add(1)
	}
}

func (c *Counters) Patched() { c.patches.Add(1) }

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() Stats {
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Joins:        c.joins.Load(),
		Loads:        c.loads.Load(),
		LoadFailures: c.loadFailures.Load(),
		Patches:      c.patches.Load(),
		LoadTime:     time.Duration(c.loadNanos.Load()),
	}
}
