package trace

import (
	"io"
	"sync"
)

// A Chrome trace is one JSON document, not a line protocol, so the stream
// brackets events with a header and footer and separates them with commas.
const (
	chromeHeader = "{\"traceEvents\":[\n"
	chromeComma  = ",\n"
	chromeFooter = "\n]}\n"
)

// StreamTracer formats events as they arrive and writes them straight to w.
// A mutex serializes writers. Trace output must never fail the build, so
// write errors are dropped.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	wrote  bool // at least one event written, governs Chrome commas
}

// NewStreamTracer wraps w. For FormatChrome the document header goes out
// immediately, so even the trace of a crashed run starts as valid JSON.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	t := &StreamTracer{w: w, level: level, format: format}
	if format == FormatChrome {
		_, _ = io.WriteString(w, chromeHeader) //nolint:errcheck
	}
	return t
}

// Emit writes ev if the level admits its scope. Heartbeats bypass the
// filter: their whole job is to timestamp hangs no matter how shallow the
// trace is.
func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.format == FormatChrome && t.wrote {
		_, _ = io.WriteString(t.w, chromeComma) //nolint:errcheck
	}
	t.wrote = true
	_, _ = t.w.Write(data) //nolint:errcheck
}

// Flush forwards to the writer when it buffers (a bufio.Writer does).
func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close finishes the Chrome document, flushes, and closes the writer when
// the tracer owns a file handle.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	if t.format == FormatChrome {
		_, _ = io.WriteString(t.w, chromeFooter) //nolint:errcheck
	}
	t.mu.Unlock()

	if err := t.Flush(); err != nil {
		return err
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
