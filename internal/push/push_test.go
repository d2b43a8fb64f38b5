package push

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegisterRejectsEmptyTaskID(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"", "   "} {
		if _, err := r.Register(id, NewSubscription(id)); !errors.Is(err, ErrEmptyTaskID) {
			t.Errorf("Register(%q) err = %v, want ErrEmptyTaskID", id, err)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}

func TestRegisterOverwriteReturnsPrevious(t *testing.T) {
	r := NewRegistry()
	first := NewSubscription("task-1")
	second := NewSubscription("task-1")

	prev, err := r.Register("task-1", first)
	if err != nil || prev != nil {
		t.Fatalf("first Register = %v, %v", prev, err)
	}
	prev, err = r.Register("task-1", second)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if prev != first {
		t.Fatal("expected first subscription to be returned as previous")
	}

	got, ok := r.Lookup("task-1")
	if !ok || got != second {
		t.Fatal("expected lookup to return the newest subscription")
	}

	// the replaced stream unregistering must not remove the newer entry
	r.Unregister("task-1", first)
	if _, ok := r.Lookup("task-1"); !ok {
		t.Fatal("stale unregister removed the active entry")
	}
	r.Unregister("task-1", second)
	if _, ok := r.Lookup("task-1"); ok {
		t.Fatal("expected entry to be removed")
	}
}

func TestUnregisterAbsentIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Unregister("missing", NewSubscription("missing"))
	if _, ok := r.Lookup("missing"); ok {
		t.Fatal("lookup of missing id returned an entry")
	}
}

func TestDeliverIsSingleShot(t *testing.T) {
	sub := NewSubscription("task-1")
	if !sub.Deliver([]byte(`{"n":1}`)) {
		t.Fatal("first Deliver should succeed")
	}
	if sub.Deliver([]byte(`{"n":2}`)) {
		t.Fatal("second Deliver should be rejected")
	}
	sub.Cancel()

	var got [][]byte
	for p := range sub.Events() {
		got = append(got, p)
	}
	if len(got) != 1 || string(got[0]) != `{"n":1}` {
		t.Fatalf("events = %q, want exactly the first payload", got)
	}
}

func TestCancelClosesWithoutPayload(t *testing.T) {
	sub := NewSubscription("task-1")
	sub.Cancel()
	sub.Cancel()
	if sub.Deliver([]byte("x")) {
		t.Fatal("Deliver after Cancel should fail")
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected closed channel without payload")
	}
}

func TestConcurrentDeliverOneWinner(t *testing.T) {
	sub := NewSubscription("task-1")
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sub.Deliver([]byte("p")) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("wins = %d, want 1", wins.Load())
	}
}
