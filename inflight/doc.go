// Package inflight tracks loads that have started but not yet concluded, so that later callers
// for the same key can join them instead of starting a duplicate.
//
// A Registry holds at most one operation per key. TryBegin atomically either registers a new
// operation, handing the caller a Handle it must complete, or returns the Future of the operation
// already registered. Every caller joined to one operation observes the identical Result.
package inflight
