package hub_test

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sourcegraph/conc"

	"github.com/gabrielnfc/eivoucasar-sub001/hub"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) record(prefix string) func(string) {
	return func(s string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.got = append(r.got, prefix+":"+s)
	}
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestPublish_RegistrationOrder(t *testing.T) {
	t.Parallel()

	var h hub.Hub[string, string]
	var rec recorder
	for _, name := range []string{"a", "b", "c"} {
		unsubscribe := h.Subscribe("user-1", rec.record(name))
		defer unsubscribe()
	}

	h.Publish("user-1", "loading")
	h.Publish("user-1", "loaded")
	h.Publish("user-2", "ignored")

	want := []string{"a:loading", "b:loading", "c:loading", "a:loaded", "b:loaded", "c:loaded"}
	if diff := cmp.Diff(want, rec.events()); diff != "" {
		t.Errorf("unexpected deliveries (-want +got):\n%s", diff)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	t.Parallel()

	var h hub.Hub[int, string]
	var rec recorder
	unsubscribe := h.Subscribe(1, rec.record("a"))
	keep := h.Subscribe(1, rec.record("b"))
	defer keep()

	h.Publish(1, "first")
	unsubscribe()
	unsubscribe()
	h.Publish(1, "second")

	want := []string{"a:first", "b:first", "b:second"}
	if diff := cmp.Diff(want, rec.events()); diff != "" {
		t.Errorf("unexpected deliveries (-want +got):\n%s", diff)
	}
	if got := h.Subscribers(1); got != 1 {
		t.Errorf("Subscribers() = %d, want 1", got)
	}

	keep()
	if got := h.Keys(); got != 0 {
		t.Errorf("Keys() = %d, want 0 once the last subscriber left", got)
	}
}

func TestPublish_UnsubscribeFromCallback(t *testing.T) {
	t.Parallel()

	var h hub.Hub[string, string]
	var rec recorder

	var unsubscribeA func()
	unsubscribeA = h.Subscribe("k", func(s string) {
		rec.record("a")(s)
		unsubscribeA()
	})
	unsubscribeB := h.Subscribe("k", rec.record("b"))
	defer unsubscribeB()

	h.Publish("k", "one")
	h.Publish("k", "two")

	want := []string{"a:one", "b:one", "b:two"}
	if diff := cmp.Diff(want, rec.events()); diff != "" {
		t.Errorf("unexpected deliveries (-want +got):\n%s", diff)
	}
}

func TestPublish_UnsubscribeOtherDuringDelivery(t *testing.T) {
	t.Parallel()

	var h hub.Hub[string, string]
	var rec recorder

	var unsubscribeB func()
	unsubscribeA := h.Subscribe("k", func(s string) {
		rec.record("a")(s)
		unsubscribeB()
	})
	defer unsubscribeA()
	unsubscribeB = h.Subscribe("k", rec.record("b"))

	h.Publish("k", "one")

	want := []string{"a:one"}
	if diff := cmp.Diff(want, rec.events()); diff != "" {
		t.Errorf("unexpected deliveries (-want +got):\n%s", diff)
	}
}

func TestPublish_Reentrant(t *testing.T) {
	t.Parallel()

	var h hub.Hub[string, string]
	var rec recorder

	unsubscribeA := h.Subscribe("k", func(s string) {
		rec.record("a")(s)
		if s == "one" {
			// delivered after every subscriber saw "one"
			h.Publish("k", "two")
		}
	})
	defer unsubscribeA()
	unsubscribeB := h.Subscribe("k", rec.record("b"))
	defer unsubscribeB()

	h.Publish("k", "one")

	want := []string{"a:one", "b:one", "a:two", "b:two"}
	if diff := cmp.Diff(want, rec.events()); diff != "" {
		t.Errorf("unexpected deliveries (-want +got):\n%s", diff)
	}
}

func TestPublish_PostFlushOrder(t *testing.T) {
	t.Parallel()

	var h hub.Hub[string, int]
	var (
		mu  sync.Mutex
		got []int
	)
	unsubscribe := h.Subscribe("k", func(v int) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, v)
	})
	defer unsubscribe()

	h.Post("k", 1)
	h.Post("k", 2)
	h.Post("k", 3)
	h.Flush("k")
	h.Flush("k")

	if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
		t.Errorf("unexpected deliveries (-want +got):\n%s", diff)
	}
}

func TestPublish_ConcurrentSubscribersSeeSameOrder(t *testing.T) {
	t.Parallel()

	var h hub.Hub[string, int]
	const numSubscribers = 4
	const numStates = 200

	seen := make([][]int, numSubscribers)
	for i := range numSubscribers {
		unsubscribe := h.Subscribe("k", func(v int) {
			seen[i] = append(seen[i], v)
		})
		defer unsubscribe()
	}

	var (
		orderMu sync.Mutex
		order   []int
		wg      conc.WaitGroup
	)
	for i := range numStates {
		wg.Go(func() {
			orderMu.Lock()
			order = append(order, i)
			h.Post("k", i)
			orderMu.Unlock()
			h.Flush("k")
		})
	}
	wg.Wait()

	for i := range numSubscribers {
		if diff := cmp.Diff(order, seen[i]); diff != "" {
			t.Errorf("subscriber %d saw a different sequence (-want +got):\n%s", i, diff)
		}
	}
}
