package reax

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/velarun/reax/rclock"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	w, err := newWorker(0, defaultBatch, rclock.New(), nil, nil, nil)
	if err != nil {
		t.Fatalf("newWorker: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.start(ctx)
	t.Cleanup(func() {
		w.abort(ctx)
		cancel()
	})
	return w
}

// newTestPipe creates a non-blocking pipe with syscall.Pipe+SetNonblock,
// portable across the linux/bsd poller backends (unlike Pipe2, which is
// Linux-only).
func newTestPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	syscall.SetNonblock(fds[0], true)
	syscall.SetNonblock(fds[1], true)
	t.Cleanup(func() {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestWorkerScheduleRunsOnReactorGoroutine(t *testing.T) {
	w := newTestWorker(t)
	done := make(chan struct{})
	w.schedule(&taskHandle{run: func() { close(done) }})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduled task never ran")
	}
}

func TestWorkerIOReadiness(t *testing.T) {
	w := newTestWorker(t)
	r, wfd := newTestPipe(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resultCh := make(chan error, 1)
	go func() {
		iw := newIoWait(r, DirRead, rclock.Never)
		resultCh <- w.RegisterIO(ctx, iw)
	}()

	time.Sleep(20 * time.Millisecond)
	if _, err := syscall.Write(wfd, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case err := <-resultCh:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("IoWait never fired")
	}
}

func TestWorkerIOTimeout(t *testing.T) {
	w := newTestWorker(t)
	r, _ := newTestPipe(t)

	iw := newIoWait(r, DirRead, w.clock.Deadline(20))
	err := w.RegisterIO(context.Background(), iw)
	if err != ErrDeadline {
		t.Fatalf("expected ErrDeadline, got %v", err)
	}
}

func TestWorkerCancelBeforeFire(t *testing.T) {
	w := newTestWorker(t)
	r, _ := newTestPipe(t)

	iw := newIoWait(r, DirRead, rclock.Never)
	w.BeginIO(iw)
	time.Sleep(10 * time.Millisecond)
	iw.Cancel()
	if iw.loadState() != StateAbandoned {
		t.Fatalf("expected ABANDONED, got %v", iw.loadState())
	}
}

func TestIoWaitReadyAfterCancelBeforeWait(t *testing.T) {
	w := newTestWorker(t)
	r, _ := newTestPipe(t)

	iw := newIoWait(r, DirRead, rclock.Never)
	w.BeginIO(iw)
	time.Sleep(10 * time.Millisecond)
	iw.Cancel()

	if !iw.Ready() {
		t.Fatal("expected Ready() true after cancel resolved")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := iw.Wait(ctx); err != ErrAbandoned {
		t.Fatalf("expected ErrAbandoned from Wait on an already-cancelled IoWait, got %v", err)
	}
}

func TestWorkerLoadTracksInflight(t *testing.T) {
	w := newTestWorker(t)
	if w.load() != 0 {
		t.Fatalf("expected 0 load initially, got %d", w.load())
	}
	r, _ := newTestPipe(t)
	iw := newIoWait(r, DirRead, rclock.Never)
	w.BeginIO(iw)
	deadline := time.Now().Add(time.Second)
	for w.load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if w.load() != 1 {
		t.Fatalf("expected load 1 after registering an IoWait, got %d", w.load())
	}
	iw.Cancel()
	for w.load() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if w.load() != 0 {
		t.Fatalf("expected load back to 0 after cancel, got %d", w.load())
	}
}
