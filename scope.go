package reax

import (
	"context"
	"sync"
)

// Scope collects Tasks spawned together and provides a single Join point
// for all of them: every task in the scope must complete before the scope
// itself is considered joined. Unlike a single Task's Join, Scope.Join is
// accepted from inside a spawned task's body (a ctx carrying a Worker
// tag): each task body runs on its own goroutine, so blocking there to wait
// on the scope's children never stalls a Worker's reactor. A child that
// joins its own Scope waits on itself and returns only when ctx is done.
type Scope struct {
	mu      sync.Mutex
	pending []*Task
	joined  bool
}

// NewScope returns an empty Scope.
func NewScope() *Scope {
	return &Scope{}
}

// Spawn schedules fn as a new Task on hint (AnyThread for least-loaded)
// and adds it to the scope. It is a logic error to Spawn into a Scope
// after Join has been called.
func (s *Scope) Spawn(ctx context.Context, hint int, fn func(context.Context)) (*Task, error) {
	s.mu.Lock()
	if s.joined {
		s.mu.Unlock()
		return nil, ErrScopeNotJoined
	}
	t := newTask(fn)
	s.pending = append(s.pending, t)
	s.mu.Unlock()

	d, err := currentDispatcher()
	if err != nil {
		return nil, err
	}
	if err := d.scheduleTask(t, hint); err != nil {
		return nil, err
	}
	return t, nil
}

// Join blocks until every Task spawned into the scope has completed, or
// ctx is cancelled first. A Scope left unjoined is a logic error; Go has
// no destructors, so reax instead surfaces ErrScopeNotJoined if Spawn is
// attempted after Join rather than silently leaking.
func (s *Scope) Join(ctx context.Context) error {
	s.mu.Lock()
	s.joined = true
	pending := s.pending
	s.mu.Unlock()

	joinCtx := withoutWorkerID(ctx)
	for _, t := range pending {
		if err := t.Join(joinCtx); err != nil {
			return err
		}
	}
	return nil
}
