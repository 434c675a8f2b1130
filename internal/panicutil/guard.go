// Package panicutil runs untrusted callbacks so that a panic or runtime.Goexit never skips cleanup.
package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// Guard runs callbacks and reports how they ended.
type Guard struct {
	// OnGoexit is called when the callback calls runtime.Goexit.
	// The calling goroutine still exits after OnGoexit returns, so it is the last chance to release resources.
	OnGoexit func()
}

// Run calls f and returns its error.
// A panic inside f is recovered and returned as *panics.ErrRecovered.
// If f calls runtime.Goexit, OnGoexit is invoked and Run never returns.
func (g *Guard) Run(f func() error) (err error) {
	returned := false
	defer func() {
		if !returned && g.OnGoexit != nil {
			g.OnGoexit()
		}
	}()

	var catcher panics.Catcher
	catcher.Try(func() {
		err = f()
	})
	returned = true

	if r := catcher.Recovered(); r != nil {
		return r.AsError()
	}
	return err
}

// Run calls f with a zero Guard.
func Run(f func() error) error {
	var g Guard
	return g.Run(f)
}
