package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-reflect"
	"golang.org/x/sync/singleflight"

	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
	"github.com/gabrielnfc/eivoucasar-sub001/internal/panicutil"
)

// LintLoader is a loader that is used for linting purposes.
// It uses a loader to load the values.
type LintLoader[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] struct {
	Loader fetchcache.Loader[K, V]
}

var _ fetchcache.Loader[uint8, struct{}] = (*LintLoader[uint8, struct{}])(nil)

// Load retrieves the value associated with the given key from the loader.
// It validates the behavior of the loader implementation, ensuring it properly follows the Loader contract.
// In particular, it checks that a missing entity is reported as ErrNotFound rather than as a nil value.
func (l *LintLoader[K, V]) Load(ctx context.Context, key K) (V, error) {
	value, err := l.Loader.Load(ctx, key)
	if err != nil {
		return value, err
	}

	rv := reflect.ValueNoEscapeOf(value)
	switch rv.Kind() {
	case reflect.Invalid:
		panic("nil value without error: return fetchcache.ErrNotFound instead")
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			panic("nil value without error: return fetchcache.ErrNotFound instead")
		}
	}
	return value, nil
}

// TimeoutLoader is a loader that bounds every call of the underlying loader.
type TimeoutLoader[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] struct {
	Loader  fetchcache.Loader[K, V]
	Timeout time.Duration
}

var _ fetchcache.Loader[uint8, struct{}] = (*TimeoutLoader[uint8, struct{}])(nil)

// Load calls the underlying loader with a context canceled after Timeout.
// A non-positive Timeout disables the bound.
func (l *TimeoutLoader[K, V]) Load(ctx context.Context, key K) (V, error) {
	if l.Timeout <= 0 {
		return l.Loader.Load(ctx, key)
	}

	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()
	return l.Loader.Load(ctx, key)
}

// DefaultRetryBackoff is the wait before the first retry of a RetryLoader without Backoff.
var DefaultRetryBackoff = 100 * time.Millisecond

// RetryLoader is a loader that retries transient failures of the underlying loader.
// ErrNotFound, ErrInternal and context errors are never retried.
type RetryLoader[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] struct {
	Loader fetchcache.Loader[K, V]

	// Attempts is the maximum number of calls, including the first one. Values below 1 mean 1.
	Attempts int

	// Backoff is the wait before the first retry; it doubles after each retry.
	// Zero means DefaultRetryBackoff.
	Backoff time.Duration
}

var _ fetchcache.Loader[uint8, struct{}] = (*RetryLoader[uint8, struct{}])(nil)

// Load calls the underlying loader until it succeeds, fails permanently, or runs out of attempts.
// It returns the last error.
func (l *RetryLoader[K, V]) Load(ctx context.Context, key K) (V, error) {
	backoff := l.Backoff
	if backoff == 0 {
		backoff = DefaultRetryBackoff
	}

	for attempt := 1; ; attempt++ {
		value, err := l.Loader.Load(ctx, key)
		if err == nil || attempt >= l.Attempts || !retryable(err) {
			return value, err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero V
			return zero, fmt.Errorf("%w (after %d attempts, last error: %w)", ctx.Err(), attempt, err)
		case <-timer.C:
		}
		backoff *= 2
	}
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, fetchcache.ErrNotFound), errors.Is(err, fetchcache.ErrInternal):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// MultiLoaderFunc is a loader that uses a batch lookup to load values.
// Keys absent from the returned map are reported as ErrNotFound.
type MultiLoaderFunc[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] func(context.Context, []K) (map[K]V, error)

var _ fetchcache.Loader[uint8, struct{}] = (MultiLoaderFunc[uint8, struct{}])(nil)

// Load calls the function with the single key.
func (f MultiLoaderFunc[K, V]) Load(ctx context.Context, key K) (V, error) {
	values, err := f(ctx, []K{key})
	if err != nil {
		var zero V
		return zero, err
	}

	value, ok := values[key]
	if !ok {
		return value, fmt.Errorf("%w: %v", fetchcache.ErrNotFound, key)
	}
	return value, nil
}

// SharedLoader is a loader that collapses concurrent calls for the same key into one call of the underlying loader,
// across every coordinator it is given to. Keys are told apart by their fmt "%v" form.
// Loaders sharing one Group share their calls, so a Group must only be shared by loaders of the same backend.
type SharedLoader[K fetchcache.KeyConstraint, V fetchcache.ValueConstraint] struct {
	Loader fetchcache.Loader[K, V]
	Group  *singleflight.Group
}

var _ fetchcache.Loader[uint8, struct{}] = (*SharedLoader[uint8, struct{}])(nil)

// Load calls the underlying loader, or waits for the call already running for key.
// The shared call runs with the context of the caller that started it.
// A panic in the underlying loader is returned to every caller as *panics.ErrRecovered.
func (l *SharedLoader[K, V]) Load(ctx context.Context, key K) (V, error) {
	ch := l.Group.DoChan(fmt.Sprintf("%v", key), func() (any, error) {
		var value V
		var guard panicutil.Guard
		err := guard.Run(func() (err error) {
			value, err = l.Loader.Load(ctx, key)
			return err
		})
		return value, err
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case r := <-ch:
		value, _ := r.Val.(V)
		return value, r.Err
	}
}
