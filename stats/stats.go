// Package stats wires reax's per-Worker and Dispatcher counters into a
// metricz.Registry and renders them as a tabwriter-formatted table backed
// by real counters instead of raw atomics.
package stats

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/zoobzio/metricz"
)

// Metric keys, one registry instance per Dispatcher.
const (
	Inflight       = metricz.Key("reax.worker.inflight")
	MaxInflight    = metricz.Key("reax.worker.max_inflight")
	TotalQueued    = metricz.Key("reax.worker.total_queued")
	MaxPolled      = metricz.Key("reax.worker.max_polled")
	TotalScheduled = metricz.Key("reax.dispatcher.total_scheduled")
)

// WorkerStats is a snapshot of one Worker's counters.
type WorkerStats struct {
	ID          int
	Inflight    int64
	MaxInflight int64
	TotalQueued int64
	MaxPolled   int64
}

// Registry tracks counters for every Worker owned by a Dispatcher plus the
// Dispatcher-wide totalScheduled counter.
type Registry struct {
	reg     *metricz.Registry
	workers []*metricz.Registry
}

// New creates a Registry sized for n Workers.
func New(n int) *Registry {
	r := &Registry{reg: metricz.New(), workers: make([]*metricz.Registry, n)}
	r.reg.Counter(TotalScheduled)
	for i := 0; i < n; i++ {
		wr := metricz.New()
		wr.Counter(Inflight)
		wr.Gauge(MaxInflight)
		wr.Counter(TotalQueued)
		wr.Gauge(MaxPolled)
		r.workers[i] = wr
	}
	return r
}

// Worker returns the per-worker registry for id, for direct Counter/Gauge
// access from the reactor loop's hot path.
func (r *Registry) Worker(id int) *metricz.Registry {
	return r.workers[id]
}

// IncScheduled increments the dispatcher-wide total.
func (r *Registry) IncScheduled() {
	r.reg.Counter(TotalScheduled).Inc()
}

// TotalScheduledValue reads the dispatcher-wide total.
func (r *Registry) TotalScheduledValue() int64 {
	return int64(r.reg.Counter(TotalScheduled).Value())
}

// Snapshot reads every worker's counters without mutating state.
func (r *Registry) Snapshot() []WorkerStats {
	out := make([]WorkerStats, len(r.workers))
	for i, wr := range r.workers {
		out[i] = WorkerStats{
			ID:          i,
			Inflight:    int64(wr.Counter(Inflight).Value()),
			MaxInflight: int64(wr.Gauge(MaxInflight).Value()),
			TotalQueued: int64(wr.Counter(TotalQueued).Value()),
			MaxPolled:   int64(wr.Gauge(MaxPolled).Value()),
		}
	}
	return out
}

// Dump renders the per-worker table with text/tabwriter.
func (r *Registry) Dump() string {
	total := r.TotalScheduledValue()
	snap := r.Snapshot()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Queue Statistics\nTotal scheduled: %d\n", total)
	tw := tabwriter.NewWriter(&buf, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "Worker\tInflight\tMaxInflight\tTotalQueued\tMaxPolled\tUsage")
	for _, s := range snap {
		usage := 0.0
		if total > 0 {
			usage = float64(s.TotalQueued) * 100 / float64(total)
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%.2f%%\n",
			s.ID, s.Inflight, s.MaxInflight, s.TotalQueued, s.MaxPolled, usage)
	}
	tw.Flush()
	return buf.String()
}
