package hooks

import (
	"context"
	"sync"
	"testing"
)

func TestHooksEmitAbandonedFiresRegisteredHandler(t *testing.T) {
	h := New()
	defer h.Close()

	var mu sync.Mutex
	var got []Event
	if err := h.OnAbandoned(func(_ context.Context, e Event) error {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("OnAbandoned: %v", err)
	}

	h.EmitAbandoned(context.Background(), Event{WorkerID: 2, FD: 7})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].WorkerID != 2 || got[0].FD != 7 {
		t.Fatalf("expected one abandoned event with WorkerID=2 FD=7, got %+v", got)
	}
}

func TestHooksEmitTimeoutDoesNotFireAbandonedHandler(t *testing.T) {
	h := New()
	defer h.Close()

	fired := false
	if err := h.OnAbandoned(func(context.Context, Event) error {
		fired = true
		return nil
	}); err != nil {
		t.Fatalf("OnAbandoned: %v", err)
	}

	h.EmitTimeout(context.Background(), Event{WorkerID: 1})
	if fired {
		t.Fatal("expected OnAbandoned handler not to fire for a timeout event")
	}
}
