// Package trace opens tracez spans around reax's reactor loop and
// await-point lifecycle.
package trace

import (
	"context"
	"strconv"

	"github.com/zoobzio/tracez"
)

// Span keys.
const (
	ReactorIteration = tracez.Key("reax.worker.iteration")
	IoAwait          = tracez.Key("reax.io.await")
	TimerExpire      = tracez.Key("reax.timer.expire")
)

// Tags.
const (
	TagWorkerID = tracez.Tag("reax.worker_id")
	TagFD       = tracez.Tag("reax.fd")
	TagState    = tracez.Tag("reax.state")
	TagDeadline = tracez.Tag("reax.deadline_ms")
)

// Tracer wraps a *tracez.Tracer scoped to one Dispatcher.
type Tracer struct {
	t *tracez.Tracer
}

// New creates a Tracer.
func New() *Tracer {
	return &Tracer{t: tracez.New()}
}

// StartIteration opens a span for one reactor loop iteration on workerID.
func (tr *Tracer) StartIteration(ctx context.Context, workerID int) (context.Context, *tracez.Span) {
	ctx, span := tr.t.StartSpan(ctx, ReactorIteration)
	span.SetTag(TagWorkerID, strconv.Itoa(workerID))
	return ctx, span
}

// StartIoAwait opens a span for a single IoWait/Sleep lifecycle.
func (tr *Tracer) StartIoAwait(ctx context.Context, fd int) (context.Context, *tracez.Span) {
	ctx, span := tr.t.StartSpan(ctx, IoAwait)
	span.SetTag(TagFD, strconv.Itoa(fd))
	return ctx, span
}

// StartTimerExpire opens a short-lived span around one timer firing on
// deadline expiry, tagged with the terminal state it resolved to and the
// deadline it carried.
func (tr *Tracer) StartTimerExpire(ctx context.Context, state string, deadlineMs int64) (context.Context, *tracez.Span) {
	ctx, span := tr.t.StartSpan(ctx, TimerExpire)
	span.SetTag(TagState, state)
	span.SetTag(TagDeadline, strconv.FormatInt(deadlineMs, 10))
	return ctx, span
}

// Close releases the underlying tracer.
func (tr *Tracer) Close() {
	tr.t.Close()
}
