// Package hooks exposes reax's cancellation and timeout transitions as
// hookz events, so embedders can observe ABANDONED/TIMEOUT state changes
// without polling dump_stats, the same pattern pipz connectors use for
// their own lifecycle events (see filter.go's FilterEvent/hookz.Hooks).
package hooks

import (
	"context"

	"github.com/zoobzio/hookz"
)

// Hook event keys.
const (
	EventTimeout   = hookz.Key("reax.io.timeout")
	EventAbandoned = hookz.Key("reax.io.abandoned")
	EventIOError   = hookz.Key("reax.io.error")
)

// Event describes one awaiter terminal transition fired via hookz.
type Event struct {
	WorkerID int
	FD       int
	Deadline int64
}

// Hooks wraps a hookz.Hooks[Event] for one Dispatcher.
type Hooks struct {
	h *hookz.Hooks[Event]
}

// New creates a Hooks.
func New() *Hooks {
	return &Hooks{h: hookz.New[Event]()}
}

// OnTimeout registers a handler invoked whenever an IoWait/Sleep expires.
func (h *Hooks) OnTimeout(handler func(context.Context, Event) error) error {
	_, err := h.h.Hook(EventTimeout, handler)
	return err
}

// OnAbandoned registers a handler invoked whenever cancel() wins the race.
func (h *Hooks) OnAbandoned(handler func(context.Context, Event) error) error {
	_, err := h.h.Hook(EventAbandoned, handler)
	return err
}

// EmitTimeout fires the timeout event; errors from handlers are not
// propagated to the scheduler (see spec §7: the scheduler does not throw).
func (h *Hooks) EmitTimeout(ctx context.Context, e Event) {
	_ = h.h.Emit(ctx, EventTimeout, e)
}

// EmitAbandoned fires the abandoned event.
func (h *Hooks) EmitAbandoned(ctx context.Context, e Event) {
	_ = h.h.Emit(ctx, EventAbandoned, e)
}

// EmitIOError fires the io-error event.
func (h *Hooks) EmitIOError(ctx context.Context, e Event) {
	_ = h.h.Emit(ctx, EventIOError, e)
}

// Close releases the underlying hookz registry.
func (h *Hooks) Close() {
	h.h.Close()
}
