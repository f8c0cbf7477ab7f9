// Package rclock implements reax's TimeSource on top of clockz.Clock,
// so tests can swap in a fake clock the way pipz's connectors do via
// WithClock (see backoff.go, timeout.go, ratelimiter.go in the pipz
// connector library).
package rclock

import (
	"time"

	"github.com/zoobzio/clockz"
)

// Never is the sentinel deadline meaning "no timeout".
const Never int64 = -1

// Source is a monotonic millisecond TimeSource backed by a clockz.Clock.
type Source struct {
	clock clockz.Clock
	epoch time.Time
}

// New returns a Source using clockz.RealClock.
func New() *Source {
	return NewWithClock(clockz.RealClock)
}

// NewWithClock returns a Source backed by an arbitrary clockz.Clock,
// e.g. a fake clock in tests.
func NewWithClock(clock clockz.Clock) *Source {
	return &Source{clock: clock, epoch: clock.Now()}
}

// NowMs returns a monotonic millisecond count. It is relative to the
// Source's creation time, not to the Unix epoch: only differences between
// two calls are meaningful, matching spec's "integer milliseconds" TimeSource.
func (s *Source) NowMs() int64 {
	return int64(s.clock.Now().Sub(s.epoch) / time.Millisecond)
}

// Deadline returns NowMs()+timeoutMs, or Never if timeoutMs is negative.
func (s *Source) Deadline(timeoutMs int64) int64 {
	if timeoutMs < 0 {
		return Never
	}
	return s.NowMs() + timeoutMs
}

// After mirrors clockz.Clock.After, for callers that want to observe
// clock-driven channels directly.
func (s *Source) After(d time.Duration) <-chan time.Time {
	return s.clock.After(d)
}

// Clock exposes the underlying clockz.Clock, e.g. to pass to a fake-clock
// aware test helper.
func (s *Source) Clock() clockz.Clock {
	return s.clock
}
