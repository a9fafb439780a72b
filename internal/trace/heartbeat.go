package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits a beat event at a fixed interval for as long as the run
// lasts. In the trace of a hung build the beats keep arriving after span
// ends stop, which pins the wedge to whatever span never closed. Beats
// bypass the level filter for the same reason.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
	done     sync.WaitGroup
}

// StartHeartbeat launches the beat goroutine. It returns nil when the
// tracer is disabled or the interval is not positive; Stop on a nil
// Heartbeat is a no-op, so callers defer it unconditionally.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}

	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		stop:     make(chan struct{}),
	}
	h.done.Add(1)
	go h.loop()
	return h
}

func (h *Heartbeat) loop() {
	defer h.done.Done()

	tick := time.NewTicker(h.interval)
	defer tick.Stop()

	for n := uint64(1); ; n++ {
		select {
		case <-h.stop:
			return
		case <-tick.C:
		}
		h.tracer.Emit(&Event{
			Time:   time.Now(),
			Seq:    NextSeq(),
			Kind:   KindHeartbeat,
			Scope:  ScopeRun,
			GID:    goroutineID(),
			Name:   "heartbeat",
			Detail: fmt.Sprintf("#%d", n),
		})
	}
}

// Stop halts the beats and waits for the goroutine to exit. It is safe to
// call repeatedly and on a nil receiver.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		close(h.stop)
		h.done.Wait()
	})
}
