package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the newest events in a fixed circular buffer. It exists
// for the crash path: the buffer costs nothing on disk while the build runs
// and gets dumped only when a panic handler asks for it.
type RingTracer struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
	head     int  // next write position
	full     bool // has wrapped around
	level    Level
}

// NewRingTracer allocates a ring holding capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}

	return &RingTracer{
		events:   make([]Event, capacity),
		capacity: capacity,
		level:    level,
	}
}

// Emit stores ev, overwriting the oldest event once the ring is full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.events[t.head] = *ev
	t.head = (t.head + 1) % t.capacity

	if t.head == 0 {
		t.full = true
	}
}

// Snapshot copies the stored events out in arrival order.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.full {
		result := make([]Event, t.head)
		copy(result, t.events[:t.head])
		return result
	}

	// После заворота хвост лежит в начале слайса: склеиваем [head:] + [:head].
	result := make([]Event, t.capacity)
	copy(result, t.events[t.head:])
	copy(result[t.capacity-t.head:], t.events[:t.head])
	return result
}

// Dump formats the buffered events and writes them to w. The panic handler
// calls this with FormatText so the tail of the trace lands in the crash
// report.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

// Flush is a no-op: the ring lives entirely in memory.
func (t *RingTracer) Flush() error { return nil }

// Close is a no-op for the same reason.
func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }

// Ring unwraps the ring buffer behind t, if any.
func Ring(t Tracer) *RingTracer {
	switch tt := t.(type) {
	case *RingTracer:
		return tt
	case *MultiTracer:
		for _, tr := range tt.tracers {
			if r := Ring(tr); r != nil {
				return r
			}
		}
	}
	return nil
}
