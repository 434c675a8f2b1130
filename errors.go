package fetchcache

import (
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/panics"
)

var (
	// ErrNotFound reports that the loader determined the entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrTransport reports that the loader failed for operational reasons.
	ErrTransport = errors.New("unable to load entity from source")

	// ErrInternal reports a broken coordinator invariant or a crashed loader.
	ErrInternal = errors.New("internal fetch coordinator error")
)

// ErrorKind classifies load failures.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNotFound
	KindTransport
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindTransport:
		return "transport"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindTransport:
		return ErrTransport
	case KindInternal:
		return ErrInternal
	default:
		return nil
	}
}

// LoadError is the error carried by a failed load.
// The same *LoadError value is handed to every caller that joined the load.
type LoadError struct {
	Kind ErrorKind
	Key  any
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %v: %s: %v", e.Key, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the error's kind.
func (e *LoadError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Classify wraps a loader error into a *LoadError.
// Errors wrapping ErrNotFound become KindNotFound, recovered panics and ErrInternal become KindInternal,
// everything else is KindTransport. An existing *LoadError is returned as is.
func Classify(key any, err error) *LoadError {
	if err == nil {
		return nil
	}

	var le *LoadError
	if errors.As(err, &le) {
		return le
	}

	var recovered *panics.ErrRecovered
	switch {
	case errors.Is(err, ErrNotFound):
		return &LoadError{Kind: KindNotFound, Key: key, Err: err}
	case errors.As(err, &recovered), errors.Is(err, ErrInternal):
		return &LoadError{Kind: KindInternal, Key: key, Err: err}
	default:
		return &LoadError{Kind: KindTransport, Key: key, Err: err}
	}
}

// KindOf returns the kind of err, or KindNone when err is nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return Classify(nil, err).Kind
}
