// Package store provides cache store adapters.
//
// Concrete stores live in subpackages: memstore is the in-memory store used by default,
// and storetest holds the conformance suite every CacheStore implementation should pass.
// FunctionsStore builds a CacheStore from callbacks, mostly to observe or fake a store in tests.
package store
