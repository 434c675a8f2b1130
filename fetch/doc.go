// Package fetch coordinates loads of keyed entities shared by many independent consumers.
//
// A Coordinator loads each key at most once at a time, serves fresh results from its cache store
// for the store's TTL, and broadcasts every state transition of a key to the key's subscribers.
// The loader is supplied per call, so a single Coordinator can front any source of truth.
//
// A Binding is the consumer-side facade: it follows one key at a time, keeps the latest State,
// and exposes Request, Refresh and PatchLocal on that key.
package fetch
