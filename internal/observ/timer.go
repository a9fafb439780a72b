package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase хранит замер одного этапа запуска.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer measures the sequential phases of a build run: loading the
// manifest, scanning for scripts, assembling the base classpath and so
// on. It is not safe for concurrent use; per-script timings collected
// inside the worker pool live in pipeline.Timings instead.
type Timer struct {
	phases []Phase
}

// NewTimer returns an empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin opens a new phase and returns its index for End.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase at idx and attaches an optional note.
// Indexes that Begin never returned are ignored.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Summary renders the recorded phases as an aligned table with a total row.
func (t *Timer) Summary() string {
	var b strings.Builder
	b.WriteString("timings:\n")
	var total time.Duration
	for _, p := range t.phases {
		total += p.Dur
		fmt.Fprintf(&b, "  %-24s %8.2f ms", p.Name, millis(p.Dur))
		if p.Note != "" {
			b.WriteString("  " + p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-24s %8.2f ms\n", "total", millis(total))
	return b.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
