package reax

import "context"

// Sleep is an awaiter for a timed delay. Like IoWait it is a fresh,
// single-use object embedding an intrusive timerEntry.
type Sleep struct {
	awaiterCore
}

func newSleep(deadlineMs int64) *Sleep {
	s := &Sleep{awaiterCore: newAwaiterCore(deadlineMs)}
	s.entry.target = s
	return s
}

// expire implements timerTarget: CAS SCHEDULED->FIRED; the caller resumes.
func (s *Sleep) expire(now int64) bool {
	return s.cas(StateScheduled, StateFired)
}

// Ready reports true only once s has reached a terminal state.
func (s *Sleep) Ready() bool {
	return s.ready()
}

// Wait blocks until s fires or ctx is cancelled first, cancelling s
// synchronously in the latter case.
func (s *Sleep) Wait(ctx context.Context) error {
	s.wait(ctx.Done())
	if !s.ready() {
		s.Cancel()
		return ctx.Err()
	}
	if s.loadState() == StateTimeout {
		return ErrDeadline
	}
	return nil
}

// Cancel requests the SCHEDULED->ABANDONED transition, blocking until the
// owning Worker has resolved it.
func (s *Sleep) Cancel() {
	if s.worker != nil {
		s.worker.CancelSleep(s)
	}
}
