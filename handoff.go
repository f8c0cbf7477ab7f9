package reax

import "sync/atomic"

// handoffNode is one link in the MPSC queue; task is nil only for the
// permanent dummy/sentinel node.
type handoffNode struct {
	next atomic.Pointer[handoffNode]
	task *taskHandle
}

// handoffQueue is the per-Worker multi-producer/single-consumer lock-free
// queue of task handles. Producers are any goroutine calling
// Worker.schedule; the consumer is the Worker's own reactor loop.
// Implemented as a Vyukov-style intrusive MPSC queue: enqueue is a single
// atomic swap plus a following store (producers never block each other
// beyond that single swap); dequeue is consumer-only and lock-free.
type handoffQueue struct {
	head atomic.Pointer[handoffNode]
	tail atomic.Pointer[handoffNode]
}

func newHandoffQueue() *handoffQueue {
	dummy := &handoffNode{}
	q := &handoffQueue{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// tryEnqueue appends t. Never blocks.
func (q *handoffQueue) tryEnqueue(t *taskHandle) {
	n := &handoffNode{task: t}
	prev := q.tail.Swap(n)
	prev.next.Store(n)
}

// tryDequeue pops the oldest task handle. It may transiently report empty
// even with a concurrent enqueue in flight (the producer's swap and its
// following link-store are not atomic together); callers that need a
// bound must retry on the next reactor iteration rather than spin here.
func (q *handoffQueue) tryDequeue() (*taskHandle, bool) {
	head := q.head.Load()
	next := head.next.Load()
	if next == nil {
		return nil, false
	}
	q.head.Store(next)
	t := next.task
	next.task = nil
	return t, true
}
