package reax

import (
	"context"
	"sync/atomic"

	"github.com/zoobzio/metricz"

	"github.com/velarun/reax/hooks"
	"github.com/velarun/reax/rclock"
	"github.com/velarun/reax/rlog"
	"github.com/velarun/reax/stats"
	"github.com/velarun/reax/trace"
)

// Worker is one reactor thread. It owns a readinessPoller, a handoffQueue,
// and a timerList exclusively: every poller registration and every
// timerList mutation happens on the Worker's own reactor goroutine. The
// handoffQueue is the one structure other goroutines write to, through its
// lock-free enqueue; only the reactor goroutine dequeues.
//
// External callers never touch the poller or targets map directly; they
// enqueue a closure onto the handoff queue and wake the Worker, keeping
// every epoll_ctl-equivalent call single-threaded.
type Worker struct {
	id      int
	poller  readinessPoller
	handoff *handoffQueue
	timers  timerList
	clock   *rclock.Source
	metrics *metricz.Registry
	tracer  *trace.Tracer
	hookset *hooks.Hooks
	batch   int

	targets map[int]*IoWait // reactor-goroutine-owned, no lock

	inflight    int64
	maxInflight int64

	stopCh  chan struct{}
	stopped chan struct{}
}

func newWorker(id int, batch int, clock *rclock.Source, metrics *metricz.Registry, tracer *trace.Tracer, hookset *hooks.Hooks) (*Worker, error) {
	p, err := openPoller(batch)
	if err != nil {
		return nil, err
	}
	return &Worker{
		id:      id,
		poller:  p,
		handoff: newHandoffQueue(),
		clock:   clock,
		metrics: metrics,
		tracer:  tracer,
		hookset: hookset,
		batch:   batch,
		targets: make(map[int]*IoWait),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// load reports the Worker's current in-flight count (queued handoffs plus
// SCHEDULED IoWaits and Sleeps), the signal the
// Dispatcher's least-load tie-break uses.
func (w *Worker) load() int64 {
	return atomic.LoadInt64(&w.inflight)
}

func (w *Worker) incInflight() {
	n := atomic.AddInt64(&w.inflight, 1)
	for {
		cur := atomic.LoadInt64(&w.maxInflight)
		if n <= cur || atomic.CompareAndSwapInt64(&w.maxInflight, cur, n) {
			break
		}
	}
	if w.metrics != nil {
		w.metrics.Counter(stats.Inflight).Inc()
		w.metrics.Gauge(stats.MaxInflight).Set(float64(atomic.LoadInt64(&w.maxInflight)))
	}
}

func (w *Worker) decInflight() {
	atomic.AddInt64(&w.inflight, -1)
}

// start launches the reactor loop on a new goroutine and returns once it
// has begun running.
func (w *Worker) start(ctx context.Context) {
	running := make(chan struct{})
	go func() {
		close(running)
		w.loop(ctx)
	}()
	<-running
	rlog.WorkerStarted(ctx, w.id)
}

// abort signals the reactor loop to stop and blocks until it has returned.
func (w *Worker) abort(ctx context.Context) {
	close(w.stopCh)
	w.poller.wake()
	<-w.stopped
	w.poller.close()
	rlog.WorkerStopped(ctx, w.id)
}

// schedule hands fn off to run on this Worker's own goroutine. Counts
// toward inflight/load from the moment it is queued (spec §3: inflight =
// queued handoffs + SCHEDULED IoWaits + SCHEDULED Sleeps) until the
// reactor loop drains it, so a burst of queued work makes this Worker
// look busier to the Dispatcher's least-load pick even before any of it
// has actually run.
func (w *Worker) schedule(th *taskHandle) {
	w.incInflight()
	w.handoff.tryEnqueue(th)
	if w.metrics != nil {
		w.metrics.Counter(stats.TotalQueued).Inc()
	}
	w.poller.wake()
}

// BeginIO schedules iw's registration on w and returns immediately,
// without waiting for it to resolve; the returned object's Wait and
// Cancel methods can then be driven from a different goroutine than the
// one that began the await.
func (w *Worker) BeginIO(iw *IoWait) {
	iw.worker = w
	w.schedule(&taskHandle{run: func() { w.doRegisterIO(iw) }})
}

// BeginSleep is BeginIO's counterpart for a Sleep.
func (w *Worker) BeginSleep(s *Sleep) {
	s.worker = w
	w.schedule(&taskHandle{run: func() { w.doRegisterSleep(s) }})
}

// RegisterIO installs iw on this Worker and blocks the caller until it
// reaches a terminal state or ctx is cancelled first. On ctx cancellation
// it synchronously cancels iw before returning, so the caller never
// observes a half-cancelled awaiter.
func (w *Worker) RegisterIO(ctx context.Context, iw *IoWait) error {
	w.BeginIO(iw)
	return iw.Wait(ctx)
}

// RegisterSleep installs s on this Worker and blocks until it fires or ctx
// is cancelled first.
func (w *Worker) RegisterSleep(ctx context.Context, s *Sleep) error {
	w.BeginSleep(s)
	return s.Wait(ctx)
}

func (w *Worker) doRegisterIO(iw *IoWait) {
	if !iw.cas(StateCreated, StateScheduled) {
		return
	}
	if err := w.poller.register(iw.fd, iw.dir); err != nil {
		iw.err = err
		rlog.RegisterFailed(context.Background(), w.id, iw.fd, err)
		if iw.cas(StateScheduled, StateError) {
			iw.signal()
		}
		return
	}
	w.targets[iw.fd] = iw
	if iw.hasDeadline() {
		w.timers.insert(iw.target())
	}
	if w.tracer != nil {
		_, span := w.tracer.StartIoAwait(context.Background(), iw.fd)
		iw.spanFinish = span.Finish
	}
	w.incInflight()
}

func (w *Worker) doRegisterSleep(s *Sleep) {
	if !s.cas(StateCreated, StateScheduled) {
		return
	}
	w.timers.insert(s.target())
	if w.tracer != nil {
		_, span := w.tracer.StartIoAwait(context.Background(), -1)
		s.spanFinish = span.Finish
	}
	w.incInflight()
}

// CancelIO attempts the SCHEDULED->ABANDONED transition for iw, running the
// actual poller/timer cleanup on the reactor goroutine and blocking the
// caller until it completes. A no-op if iw already reached a terminal
// state through the event or timeout path.
func (w *Worker) CancelIO(iw *IoWait) {
	done := make(chan struct{})
	w.schedule(&taskHandle{run: func() {
		defer close(done)
		if iw.cas(StateScheduled, StateAbandoned) {
			w.poller.unregister(iw.fd)
			delete(w.targets, iw.fd)
			w.timers.erase(iw.target())
			w.decInflight()
			if w.hookset != nil {
				w.hookset.EmitAbandoned(context.Background(), hooks.Event{WorkerID: w.id, FD: iw.fd})
			}
			iw.signal()
		}
	}})
	<-done
}

// CancelSleep is CancelIO's counterpart for a Sleep (no fd to unregister).
func (w *Worker) CancelSleep(s *Sleep) {
	done := make(chan struct{})
	w.schedule(&taskHandle{run: func() {
		defer close(done)
		if s.cas(StateScheduled, StateAbandoned) {
			w.timers.erase(s.target())
			w.decInflight()
			if w.hookset != nil {
				w.hookset.EmitAbandoned(context.Background(), hooks.Event{WorkerID: w.id})
			}
			s.signal()
		}
	}})
	<-done
}

// loop is the reactor: each iteration computes a poll timeout from the
// nearest timer deadline, blocks in the poller, then drains work in
// priority order: handoffs first, readiness events second, expired timers
// last. A drained handoff runs inline if it's an internal control closure
// (IoWait/Sleep registration or cancellation, which must stay on this
// goroutine to touch the poller/targets/timers without locking) or on its
// own goroutine if it's a user Task body, which may itself suspend and
// must not block the reactor while doing so. Every other step runs
// entirely on this goroutine, so no step needs to take a lock on the
// Worker's own state.
func (w *Worker) loop(ctx context.Context) {
	defer close(w.stopped)
	events := make([]pollEvent, w.batch)
	wakeFD := w.poller.wakeFD()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		timeout := -1
		if dl, ok := w.timers.peekDeadline(); ok {
			now := w.clock.NowMs()
			if dl <= now {
				timeout = 0
			} else {
				timeout = int(dl - now)
			}
		}

		var finish func()
		if w.tracer != nil {
			_, span := w.tracer.StartIteration(ctx, w.id)
			finish = span.Finish
		}

		n, err := w.poller.wait(events, timeout)
		if finish != nil {
			finish()
		}
		if err != nil {
			select {
			case <-w.stopCh:
				return
			default:
			}
			continue
		}

		for {
			th, ok := w.handoff.tryDequeue()
			if !ok {
				break
			}
			w.decInflight()
			if th.async {
				go th.run()
			} else {
				th.run()
			}
		}

		for i := 0; i < n; i++ {
			ev := events[i]
			if ev.fd == wakeFD {
				w.poller.drainWake()
				continue
			}
			w.handleEvent(ev)
		}

		if n > 0 && w.metrics != nil {
			if g := w.metrics.Gauge(stats.MaxPolled); float64(n) > float64(g.Value()) {
				g.Set(float64(n))
			}
		}

		now := w.clock.NowMs()
		for _, e := range w.timers.expire(now) {
			w.fireTimer(e, now)
		}
	}
}

func (w *Worker) handleEvent(ev pollEvent) {
	iw, ok := w.targets[ev.fd]
	if !ok {
		return
	}
	isErr := ev.flags&(flagHup|flagErr) != 0
	if !iw.fire(isErr) {
		return
	}
	w.poller.unregister(ev.fd)
	delete(w.targets, ev.fd)
	w.timers.erase(iw.target())
	w.decInflight()
	if isErr && w.hookset != nil {
		w.hookset.EmitIOError(context.Background(), hooks.Event{WorkerID: w.id, FD: ev.fd})
	}
	iw.signal()
}

func (w *Worker) fireTimer(e *timerEntry, now int64) {
	if !e.target.expire(now) {
		return
	}
	if w.tracer != nil {
		state := StateTimeout
		if _, ok := e.target.(*Sleep); ok {
			state = StateFired
		}
		_, span := w.tracer.StartTimerExpire(context.Background(), state.String(), e.deadline)
		span.Finish()
	}
	switch t := e.target.(type) {
	case *IoWait:
		w.poller.unregister(t.fd)
		delete(w.targets, t.fd)
		w.decInflight()
		if w.hookset != nil {
			w.hookset.EmitTimeout(context.Background(), hooks.Event{WorkerID: w.id, FD: t.fd, Deadline: t.deadline})
		}
		t.signal()
	case *Sleep:
		w.decInflight()
		if w.hookset != nil {
			w.hookset.EmitTimeout(context.Background(), hooks.Event{WorkerID: w.id, Deadline: t.deadline})
		}
		t.signal()
	}
}
