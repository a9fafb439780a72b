package trace

import "errors"

// MultiTracer fans each event out to a fixed set of tracers. Storage mode
// "both" is built on it: one stream going to disk, one ring staying in
// memory for the panic dump.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

// NewMultiTracer combines tracers into one. Nil entries are dropped.
func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	kept := make([]Tracer, 0, len(tracers))
	for _, tr := range tracers {
		if tr != nil {
			kept = append(kept, tr)
		}
	}
	return &MultiTracer{tracers: kept, level: level}
}

// Emit hands ev to every tracer. Each one still applies its own level
// filter, so the fan-out does not widen what any single tracer records.
func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		tr.Emit(ev)
	}
}

// Flush flushes every tracer and reports the combined failures.
func (t *MultiTracer) Flush() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

// Close closes every tracer and reports the combined failures.
func (t *MultiTracer) Close() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Level() Level  { return t.level }
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }
