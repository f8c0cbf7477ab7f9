package reax

import "context"

// Spawn schedules fn as a detached (fire-and-forget) Task on the Worker
// resolved from hint (AnyThread for least-loaded), returning a handle that
// can still be Join'd if the caller wants to observe completion.
func Spawn(hint int, fn func(context.Context)) (*Task, error) {
	d, err := currentDispatcher()
	if err != nil {
		return nil, err
	}
	w, err := d.pick(hint)
	if err != nil {
		return nil, err
	}
	t := newTask(fn)
	w.schedule(t.handle(withWorkerID(context.Background(), w.id)))
	d.stats.IncScheduled()
	return t, nil
}

// BeginAwaitFD schedules iw's registration and returns it immediately
// without blocking, so the caller can hand it to another goroutine for
// cancellation before calling Wait.
func BeginAwaitFD(fd int, dir Direction, timeoutMs int64, hint int) (*IoWait, error) {
	d, err := currentDispatcher()
	if err != nil {
		return nil, err
	}
	w, err := d.pick(hint)
	if err != nil {
		return nil, err
	}
	iw := newIoWait(fd, dir, d.clock.Deadline(timeoutMs))
	w.BeginIO(iw)
	return iw, nil
}

// AwaitFD blocks the calling goroutine until fd is ready for dir, the
// deadline (timeoutMs<0 for none) elapses, or ctx is cancelled first.
func AwaitFD(ctx context.Context, fd int, dir Direction, timeoutMs int64, hint int) error {
	iw, err := BeginAwaitFD(fd, dir, timeoutMs, hint)
	if err != nil {
		return err
	}
	return iw.Wait(ctx)
}

// BeginAwaitSleep schedules s and returns it immediately without blocking.
func BeginAwaitSleep(durationMs int64, hint int) (*Sleep, error) {
	d, err := currentDispatcher()
	if err != nil {
		return nil, err
	}
	w, err := d.pick(hint)
	if err != nil {
		return nil, err
	}
	s := newSleep(d.clock.Deadline(durationMs))
	w.BeginSleep(s)
	return s, nil
}

// AwaitSleep blocks the calling goroutine for durationMs, or until ctx is
// cancelled first.
func AwaitSleep(ctx context.Context, durationMs int64, hint int) error {
	s, err := BeginAwaitSleep(durationMs, hint)
	if err != nil {
		return err
	}
	return s.Wait(ctx)
}

// Cancel abandons a pending IoWait or Sleep. Calling Cancel on an awaiter
// that has already reached a terminal state is a harmless no-op.
func Cancel(w interface{ Cancel() }) {
	w.Cancel()
}
