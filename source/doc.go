// Package source provides decorators and adapters for fetchcache.Loader implementations.
//
// A coordinator invokes a loader at most once per key at a time and never retries it.
// TimeoutLoader and RetryLoader add a deadline and bounded retries of transient failures.
// LintLoader turns a nil value returned without an error into a panic, which a coordinator reports as an internal failure.
// MultiLoaderFunc adapts a batch lookup to the single-key Loader interface, and SharedLoader
// deduplicates calls made by several coordinators against one backend.
package source
