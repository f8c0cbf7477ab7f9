package reax

import "runtime"

// AnyThread is the sentinel thread hint meaning "let the Dispatcher pick
// the least-loaded Worker".
const AnyThread = -1

const (
	// maxConcurrency caps the number of Workers a Dispatcher will create.
	maxConcurrency = 512
	// defaultBatch is the maximum number of readiness events drained per
	// reactor loop iteration.
	defaultBatch = 1024
	// defaultBufSize is the size of the pooled buffers TcpSocket.ReadAny uses.
	defaultBufSize = 64 * 1024
)

// options configure a Dispatcher at Init time. There are no environment
// variables or config files: every knob is a typed functional option
// passed by the embedder.
type options struct {
	threads  int
	batch    int
	bufSize  int
}

// Option configures Dispatcher.Init.
type Option func(*options)

// WithThreads sets the Worker count. 0 (the default) means runtime.NumCPU(),
// capped at maxConcurrency.
func WithThreads(n int) Option {
	return func(o *options) { o.threads = n }
}

// WithBatchSize sets the max readiness events drained per reactor iteration.
func WithBatchSize(n int) Option {
	return func(o *options) { o.batch = n }
}

// WithBufferSize sets the size of the pooled buffers handed out by
// TcpSocket.ReadAny.
func WithBufferSize(n int) Option {
	return func(o *options) { o.bufSize = n }
}

func defaultOptions() options {
	return options{threads: 0, batch: defaultBatch, bufSize: defaultBufSize}
}

func (o options) resolveThreads() int {
	n := o.threads
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > maxConcurrency {
		n = maxConcurrency
	}
	return n
}
