// Package keyhash derives bucket hashes for comparable keys.
package keyhash

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/goccy/go-reflect"
)

var (
	hashersMu sync.RWMutex

	// hashers caches hash functions by key type.
	hashers = map[reflect.Type]func(any) int{}
)

// For returns a hash function for the key type K.
// Keys are dispatched on their kind, so named types such as `type UserID string` hash like their underlying type.
// Kinds without a cheap encoding (structs, arrays, pointers) fall back to hashing their %v formatting.
func For[K comparable]() func(K) int {
	var zero K
	f := hasherOf(zero)
	return func(key K) int {
		return f(key)
	}
}

func hasherOf(zero any) func(any) int {
	typ := reflect.TypeOf(zero)

	hashersMu.RLock()
	f, ok := hashers[typ]
	hashersMu.RUnlock()
	if ok {
		return f
	}

	hashersMu.Lock()
	defer hashersMu.Unlock()
	if f, ok := hashers[typ]; ok {
		return f
	}
	f = newHasher(zero)
	hashers[typ] = f
	return f
}

func newHasher(zero any) func(any) int {
	typ := reflect.TypeOf(zero)
	if typ == nil {
		return hashFormatted
	}

	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(v any) int {
			return hashUint64(uint64(reflect.ValueNoEscapeOf(v).Int()))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(v any) int {
			return hashUint64(reflect.ValueNoEscapeOf(v).Uint())
		}
	case reflect.Float32, reflect.Float64:
		return func(v any) int {
			f := reflect.ValueNoEscapeOf(v).Float()
			if f == 0 {
				// -0 and +0 are the same key
				f = 0
			}
			return hashUint64(math.Float64bits(f))
		}
	case reflect.Bool:
		return func(v any) int {
			if reflect.ValueNoEscapeOf(v).Bool() {
				return hashBytes([]byte{1})
			}
			return hashBytes([]byte{0})
		}
	case reflect.String:
		return func(v any) int {
			return hashBytes([]byte(reflect.ValueNoEscapeOf(v).String()))
		}
	case reflect.Uintptr:
		panic("uintptr cannot be a hash key")
	default:
		return hashFormatted
	}
}

func hashFormatted(v any) int {
	return hashBytes([]byte(fmt.Sprintf("%#v", v)))
}

func hashUint64(u uint64) int {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], u)
	return hashBytes(b[:])
}

// hashBytes computes a non-negative FNV-1a hash of b.
func hashBytes(b []byte) int {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return int(h.Sum64() >> 1)
}
