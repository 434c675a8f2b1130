package inflight_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sourcegraph/conc"

	"github.com/gabrielnfc/eivoucasar-sub001/inflight"
)

func TestTryBegin(t *testing.T) {
	t.Parallel()

	var r inflight.Registry[string, int]

	h, f := r.TryBegin("user-1")
	if h == nil || f != nil {
		t.Fatalf("first TryBegin must return a handle, got handle=%v future=%v", h, f)
	}
	if h.Key() != "user-1" {
		t.Errorf("unexpected key: %q", h.Key())
	}

	h2, f2 := r.TryBegin("user-1")
	if h2 != nil {
		t.Fatal("second TryBegin must not return a handle while the first is in flight")
	}
	if f2 != h.Future() {
		t.Error("second TryBegin must return the existing future")
	}

	other, _ := r.TryBegin("user-2")
	if other == nil {
		t.Error("a different key must get its own handle")
	}
	if got := r.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	if !h.Complete(inflight.Result[int]{Value: 42}) {
		t.Error("first Complete must report true")
	}
	if h.Complete(inflight.Result[int]{Value: 43}) {
		t.Error("second Complete must be a no-op")
	}
	if diff := cmp.Diff(inflight.Result[int]{Value: 42}, f2.Result()); diff != "" {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}
	if r.Lookup("user-1") != nil {
		t.Error("completed operation must leave the registry")
	}

	h3, _ := r.TryBegin("user-1")
	if h3 == nil {
		t.Error("TryBegin after Complete must start a new operation")
	}
}

func TestTryBegin_Parallel(t *testing.T) {
	t.Parallel()

	var r inflight.Registry[int, string]
	const numGoroutines = 16

	var (
		mu      sync.Mutex
		handles []*inflight.Handle[int, string]
		futures []*inflight.Future[string]
		start   = make(chan struct{})
		wg      conc.WaitGroup
	)
	for range numGoroutines {
		wg.Go(func() {
			<-start
			h, f := r.TryBegin(1)
			mu.Lock()
			defer mu.Unlock()
			if h != nil {
				handles = append(handles, h)
			} else {
				futures = append(futures, f)
			}
		})
	}
	close(start)
	wg.Wait()

	if len(handles) != 1 {
		t.Fatalf("expected exactly one handle, got %d", len(handles))
	}
	for _, f := range futures {
		if f != handles[0].Future() {
			t.Error("every joiner must receive the same future")
		}
	}

	loadErr := errors.New("transport down")
	handles[0].Complete(inflight.Result[string]{Err: loadErr})
	for _, f := range futures {
		if got := f.Result(); !errors.Is(got.Err, loadErr) {
			t.Errorf("unexpected error: %v", got.Err)
		}
	}
}

func TestForget(t *testing.T) {
	t.Parallel()

	var r inflight.Registry[string, int]

	old, _ := r.TryBegin("k")
	waiter := old.Future()
	r.Forget("k")
	if !old.Superseded() {
		t.Error("forgotten operation must be superseded")
	}

	fresh, _ := r.TryBegin("k")
	if fresh == nil {
		t.Fatal("TryBegin after Forget must start a new operation")
	}

	old.Complete(inflight.Result[int]{Value: 1})
	if got := waiter.Result().Value; got != 1 {
		t.Errorf("waiters of a forgotten operation must still get its result, got %d", got)
	}
	if r.Lookup("k") != fresh.Future() {
		t.Error("completing a superseded operation must not remove the newer one")
	}
	if fresh.Superseded() {
		t.Error("the newer operation must own the slot")
	}

	r.Reset()
	if got := r.Len(); got != 0 {
		t.Errorf("Len() after Reset = %d, want 0", got)
	}
}

func TestHandle_Release(t *testing.T) {
	t.Parallel()

	var r inflight.Registry[string, int]

	h, _ := r.TryBegin("k")
	if !h.Release() {
		t.Error("Release() by the owner must report true")
	}
	if h.Release() {
		t.Error("second Release() must report false")
	}
	select {
	case <-h.Future().Done():
		t.Fatal("Release() must not resolve the future")
	default:
	}

	next, _ := r.TryBegin("k")
	if next == nil {
		t.Fatal("TryBegin after Release must start a new operation")
	}
	if !h.Complete(inflight.Result[int]{Value: 1}) {
		t.Error("Complete() after Release() must still resolve the future")
	}
	if got := h.Future().Result().Value; got != 1 {
		t.Errorf("Result().Value = %d, want 1", got)
	}
	if r.Lookup("k") != next.Future() {
		t.Error("completing a released operation must not remove the newer one")
	}
}

func TestFuture_Wait(t *testing.T) {
	t.Parallel()

	var r inflight.Registry[string, int]
	h, _ := r.TryBegin("k")

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	if _, err := h.Future().Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("unexpected error: %v (expected: context deadline exceeded)", err)
	}

	go h.Complete(inflight.Result[int]{Value: 7})
	got, err := h.Future().Wait(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if got.Value != 7 {
		t.Errorf("unexpected value: %d", got.Value)
	}
	select {
	case <-h.Future().Done():
	default:
		t.Error("Done must be closed after completion")
	}
}
