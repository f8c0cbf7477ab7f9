package reax

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestScopeJoinWaitsForAllChildren(t *testing.T) {
	if err := Init(WithThreads(2)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	var count int64
	s := NewScope()
	for i := 0; i < 5; i++ {
		if _, err := s.Spawn(context.Background(), AnyThread, func(ctx context.Context) {
			atomic.AddInt64(&count, 1)
		}); err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got := atomic.LoadInt64(&count); got != 5 {
		t.Fatalf("expected 5 completions, got %d", got)
	}
}

func TestScopeJoinFromWithinSpawnedTask(t *testing.T) {
	// Scope.Join documents itself as safe to call from a Worker-pinned
	// goroutine for its own spawned children, since each child now runs
	// on its own goroutine (not the reactor's) and Join only blocks that
	// child's own goroutine, never the Worker.
	if err := Init(WithThreads(2)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	joinErr := make(chan error, 1)
	_, err := Spawn(AnyThread, func(ctx context.Context) {
		inner := NewScope()
		var count int64
		for i := 0; i < 3; i++ {
			if _, err := inner.Spawn(ctx, AnyThread, func(context.Context) {
				atomic.AddInt64(&count, 1)
			}); err != nil {
				joinErr <- err
				return
			}
		}
		joinErr <- inner.Join(ctx)
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	select {
	case err := <-joinErr:
		if err != nil {
			t.Fatalf("expected Scope.Join to succeed from within a spawned task, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("outer task never ran")
	}
}

func TestScopeSpawnAfterJoinFails(t *testing.T) {
	if err := Init(WithThreads(1)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	s := NewScope()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := s.Spawn(ctx, AnyThread, func(context.Context) {}); err != ErrScopeNotJoined {
		t.Fatalf("expected ErrScopeNotJoined, got %v", err)
	}
}
