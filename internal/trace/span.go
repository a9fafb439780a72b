package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seqCounter    atomic.Uint64 // global event order
	spanIDCounter atomic.Uint64 // process-unique span IDs
)

// NextSeq returns the next event sequence number. Sequence numbers keep a
// total order over events even when timestamps collide.
func NextSeq() uint64 { return seqCounter.Add(1) }

// NextSpanID returns a span ID unique within the process.
func NextSpanID() uint64 { return spanIDCounter.Add(1) }

// goroutineID parses the current goroutine's ID out of runtime.Stack, whose
// first line reads "goroutine 123 [running]:". Costs about a microsecond,
// which the configured trace levels can afford; no linkname, no unsafe.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]

	b, ok := bytes.CutPrefix(b, []byte("goroutine "))
	if !ok {
		return 0
	}
	num, _, ok := bytes.Cut(b, []byte(" "))
	if !ok {
		return 0
	}

	gid, err := strconv.ParseUint(string(num), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// Span tracks one begin/end pair. Begin emits the opening event and End the
// closing one; everything in between is carried on the struct so End does
// not need arguments beyond the outcome detail.
type Span struct {
	tracer Tracer
	id     uint64
	parent uint64
	gid    uint64
	scope  Scope
	name   string
	began  time.Time
	extra  map[string]string
}

// Begin opens a span and emits its begin event. parent is the enclosing
// span's ID, zero for a root span. When the tracer is off or the scope sits
// below its level, the returned span is inert and End/WithExtra on it do
// nothing.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{tracer: Nop}
	}

	s := &Span{
		tracer: t,
		id:     NextSpanID(),
		parent: parent,
		gid:    goroutineID(),
		scope:  scope,
		name:   name,
		began:  time.Now(),
	}

	t.Emit(&Event{
		Time:     s.began,
		Seq:      NextSeq(),
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: parent,
		GID:      s.gid,
		Name:     name,
	})

	return s
}

// live reports whether the span will emit anything.
func (s *Span) live() bool {
	return s != nil && s.tracer != nil && s.tracer.Enabled()
}

// End closes the span, emitting the end event with the given detail and any
// extras attached along the way. Returns the span's wall-clock duration.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}

	dur := time.Since(s.began)
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		GID:      s.gid,
		Name:     s.name,
		Detail:   detail,
		Extra:    s.extra,
	})
	return dur
}

// WithExtra attaches a key=value pair to the eventual end event. Returns
// the span so attachments chain.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID, zero for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits a single instant event, for moments that have no duration
// worth a span of their own.
func Point(t Tracer, scope Scope, name, detail string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}

	t.Emit(&Event{
		Time:   time.Now(),
		Seq:    NextSeq(),
		Kind:   KindPoint,
		Scope:  scope,
		GID:    goroutineID(),
		Name:   name,
		Detail: detail,
	})
}
