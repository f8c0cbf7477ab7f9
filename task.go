package reax

import "context"

// taskHandle is the continuation carried through a Worker's handoff
// queue: a closure invoked once. Internal control closures (IoWait/Sleep
// registration, cancellation) must run inline on the reactor goroutine,
// since they touch the Worker's poller/targets/timers directly with no
// locking of their own. A user Task body is different: it may itself
// suspend on an IoWait/Sleep/Yield, so it is marked async and run on its
// own goroutine instead, leaving the reactor free to keep draining.
type taskHandle struct {
	run   func()
	async bool
}

// workerCtxKey tags a context with the id of the Worker a task body is
// running on, so Task.Join can refuse to block a Worker's own reactor
// goroutine (spec: Task::join must not be called from inside a Worker).
type workerCtxKey struct{}

func withWorkerID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, workerCtxKey{}, id)
}

func onWorker(ctx context.Context) bool {
	_, ok := ctx.Value(workerCtxKey{}).(int)
	return ok
}

// withoutWorkerID strips a worker tag from ctx, so a Join call derived from
// it is no longer rejected by onWorker. Used by Scope.Join: a scope's own
// children run each on their own goroutine (see taskHandle.async), so
// joining them from inside a sibling task's body no longer risks stalling
// a Worker's reactor the way joining a Task from the reactor goroutine
// itself would.
func withoutWorkerID(ctx context.Context) context.Context {
	return context.WithValue(ctx, workerCtxKey{}, nil)
}

// Task is a unit of schedulable work. Detached by default: fire-and-forget,
// nobody observes its completion. Call Join to await its completion from
// another goroutine.
type Task struct {
	fn   func(context.Context)
	done chan struct{}
}

// newTask wraps fn for scheduling. fn receives a ctx tagged with the id of
// the Worker it was scheduled on; reax never cancels that ctx, not even
// when the Dispatcher is shut down.
func newTask(fn func(context.Context)) *Task {
	return &Task{fn: fn, done: make(chan struct{})}
}

// run executes fn, closing done on return. The close is the join
// semaphore: any number of goroutines can block on it via Join, and a
// Task already finished by the time Join is called returns immediately.
// Called exactly once, on a goroutine of its own that the owning Worker's
// reactor loop starts when it drains t's handle.
func (t *Task) run(ctx context.Context) {
	defer close(t.done)
	t.fn(ctx)
}

// handle adapts t into the taskHandle carried by the handoff queue. Marked
// async: the reactor loop runs it on its own goroutine rather than inline,
// so t suspending at an IoWait/Sleep/Yield blocks only t, not the Worker.
func (t *Task) handle(ctx context.Context) *taskHandle {
	return &taskHandle{run: func() { t.run(ctx) }, async: true}
}

// Join blocks the calling goroutine until t finishes. Calling Join with a
// ctx derived from a running task's own ctx (every task body's ctx carries
// a Worker tag) returns ErrJoinOnWorker instead of blocking. Tasks that
// need to wait on other tasks from within a task body should use Scope
// instead.
func (t *Task) Join(ctx context.Context) error {
	if onWorker(ctx) {
		return ErrJoinOnWorker
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done reports whether the task has finished running.
func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
