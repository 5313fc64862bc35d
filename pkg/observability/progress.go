package observability

import "sync/atomic"

// ProgressCallback receives a phase name and a done/total pair. IVFFlat
// reports tuples_done / tuples_total during "assigning tuples"; HNSW
// reports inserted vectors against the caller-supplied total during
// "loading tuples". Neither engine counts blocks.
type ProgressCallback func(phase string, done, total int64)

// ProgressReporter tracks a named build phase's progress and fans it out
// to an optional callback. Safe for concurrent use by build workers.
type ProgressReporter struct {
	phase string
	done  int64
	total int64
	cb    ProgressCallback
}

// NewProgressReporter starts tracking a build phase.
func NewProgressReporter(phase string, total int64, cb ProgressCallback) *ProgressReporter {
	r := &ProgressReporter{phase: phase, total: total, cb: cb}
	if cb != nil {
		cb(phase, 0, total)
	}
	return r
}

// Advance increments the done counter by n and reports the new total.
func (r *ProgressReporter) Advance(n int64) {
	done := atomic.AddInt64(&r.done, n)
	if r.cb != nil {
		r.cb(r.phase, done, r.total)
	}
}

// SetPhase switches to a new named phase, resetting the done counter.
func (r *ProgressReporter) SetPhase(phase string, total int64) {
	atomic.StoreInt64(&r.done, 0)
	atomic.StoreInt64(&r.total, total)
	r.phase = phase
	if r.cb != nil {
		r.cb(phase, 0, total)
	}
}

// Done returns the current progress counters.
func (r *ProgressReporter) Done() (phase string, done, total int64) {
	return r.phase, atomic.LoadInt64(&r.done), atomic.LoadInt64(&r.total)
}
