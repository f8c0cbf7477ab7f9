package reax

import "errors"

var (
	// ErrClosed means the Worker or Dispatcher has been torn down.
	ErrClosed = errors.New("reax: scheduler closed")
	// ErrDeadline means an IoWait's deadline expired before its fd became
	// ready. A Sleep reaching its deadline is a normal completion.
	ErrDeadline = errors.New("reax: deadline exceeded")
	// ErrAbandoned means an awaiter was cancelled before it fired.
	ErrAbandoned = errors.New("reax: awaiter abandoned")
	// ErrIOError means the poller reported HUP or ERR on a registered fd.
	ErrIOError = errors.New("reax: io error on fd")
	// ErrEmptyBuffer means a Write was attempted with a nil/zero-length buffer.
	ErrEmptyBuffer = errors.New("reax: empty buffer")
	// ErrJoinOnWorker means Join was called with a context tagged as
	// belonging to a task body scheduled on a Worker.
	ErrJoinOnWorker = errors.New("reax: cannot join from a worker thread")
	// ErrScopeNotJoined means Spawn was called on a Scope after Join.
	ErrScopeNotJoined = errors.New("reax: scope already joined")
	// ErrInvalidThread means a thread hint is out of range for the Dispatcher.
	ErrInvalidThread = errors.New("reax: invalid thread hint")
)
