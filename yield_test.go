package reax

import (
	"context"
	"testing"
	"time"
)

func TestYieldHopsWorker(t *testing.T) {
	if err := Init(WithThreads(2)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := Yield(ctx, 1); err != nil {
		t.Fatalf("Yield to pinned worker: %v", err)
	}
	if err := Yield(ctx, AnyThread); err != nil {
		t.Fatalf("Yield to least-loaded worker: %v", err)
	}
}
