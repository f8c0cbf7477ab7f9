package reax

import "context"

// Yield queues a no-op handoff on the Worker resolved from hint and blocks
// the calling goroutine until that Worker's reactor has drained it: no fd,
// no deadline, just a round trip through a Worker's handoff queue. The
// caller keeps running on its own goroutine afterwards. AnyThread picks
// the least-loaded Worker, same as Spawn.
func Yield(ctx context.Context, hint int) error {
	d, err := currentDispatcher()
	if err != nil {
		return err
	}
	w, err := d.pick(hint)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	w.schedule(&taskHandle{run: func() { close(done) }})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
