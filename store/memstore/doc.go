// Package memstore provides an in-memory implementation of the fetchcache.CacheStore interface.
//
// Entries are spread over buckets, each guarded by its own lock, and are considered fresh while
// they are younger than the configured TTL. A stale entry is evicted by the read that notices it.
// Values are cloned when they enter and leave the store.
package memstore
