package reax

import (
	"context"
	"sync"

	"github.com/velarun/reax/hooks"
	"github.com/velarun/reax/rclock"
	"github.com/velarun/reax/rlog"
	"github.com/velarun/reax/stats"
	"github.com/velarun/reax/trace"
)

// Dispatcher owns the Worker pool and balances new work across it by
// least-load. There is exactly one live Dispatcher per process, reached
// through Init/Shutdown and the package-level Spawn/AwaitFD/AwaitSleep
// helpers in reax.go.
type Dispatcher struct {
	workers []*Worker
	stats   *stats.Registry
	tracer  *trace.Tracer
	hooks   *hooks.Hooks
	clock   *rclock.Source
	bufPool *sync.Pool

	ctx    context.Context
	cancel context.CancelFunc
}

var (
	dispMu sync.Mutex
	disp   *Dispatcher
)

// Init creates and starts the Worker pool. Calling Init while a Dispatcher
// is already active returns ErrClosed; callers that want a fresh pool must
// Shutdown first.
func Init(opts ...Option) error {
	dispMu.Lock()
	defer dispMu.Unlock()
	if disp != nil {
		return ErrClosed
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	n := o.resolveThreads()

	ctx, cancel := context.WithCancel(context.Background())
	bufSize := o.bufSize
	d := &Dispatcher{
		stats:   stats.New(n),
		tracer:  trace.New(),
		hooks:   hooks.New(),
		clock:   rclock.New(),
		bufPool: &sync.Pool{New: func() interface{} { return make([]byte, bufSize) }},
		ctx:     ctx,
		cancel:  cancel,
	}

	d.workers = make([]*Worker, n)
	for i := 0; i < n; i++ {
		w, err := newWorker(i, o.batch, d.clock, d.stats.Worker(i), d.tracer, d.hooks)
		if err != nil {
			for _, started := range d.workers[:i] {
				if started != nil {
					started.abort(ctx)
				}
			}
			cancel()
			return err
		}
		d.workers[i] = w
	}
	for _, w := range d.workers {
		w.start(ctx)
	}

	disp = d
	rlog.DispatcherInit(ctx, n)
	return nil
}

// Shutdown stops every Worker, in ascending id order, and releases the
// global Dispatcher. Safe to call once; a second call returns ErrClosed.
func Shutdown() error {
	dispMu.Lock()
	d := disp
	disp = nil
	dispMu.Unlock()

	if d == nil {
		return ErrClosed
	}
	for _, w := range d.workers {
		w.abort(d.ctx)
	}
	rlog.DispatcherAbort(d.ctx, len(d.workers))
	d.cancel()
	d.tracer.Close()
	d.hooks.Close()
	return nil
}

// currentDispatcher returns the live Dispatcher or ErrClosed.
func currentDispatcher() (*Dispatcher, error) {
	dispMu.Lock()
	defer dispMu.Unlock()
	if disp == nil {
		return nil, ErrClosed
	}
	return disp, nil
}

// pick resolves a thread hint to a Worker: AnyThread asks for the
// least-loaded Worker (first idle one wins immediately; otherwise the
// lowest-id Worker among those tied for minimum load), any other value
// pins to that exact Worker id.
func (d *Dispatcher) pick(hint int) (*Worker, error) {
	if hint == AnyThread {
		return d.leastLoaded(), nil
	}
	if hint < 0 || hint >= len(d.workers) {
		return nil, ErrInvalidThread
	}
	return d.workers[hint], nil
}

func (d *Dispatcher) leastLoaded() *Worker {
	for _, w := range d.workers {
		if w.load() == 0 {
			return w
		}
	}
	best := d.workers[0]
	bestLoad := best.load()
	for _, w := range d.workers[1:] {
		if l := w.load(); l < bestLoad {
			best, bestLoad = w, l
		}
	}
	return best
}

// scheduleTask places t onto the Worker resolved from hint and runs it
// with context.Background(); used by Scope, which manages its own
// cancellation via the task functions it spawns.
func (d *Dispatcher) scheduleTask(t *Task, hint int) error {
	w, err := d.pick(hint)
	if err != nil {
		return err
	}
	w.schedule(t.handle(withWorkerID(context.Background(), w.id)))
	d.stats.IncScheduled()
	return nil
}

// DumpStats renders the current per-Worker statistics table.
func DumpStats() (string, error) {
	d, err := currentDispatcher()
	if err != nil {
		return "", err
	}
	return d.stats.Dump(), nil
}
