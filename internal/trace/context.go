package trace

import "context"

// Context keys are unexported struct types so no other package can collide
// with them.
type (
	tracerKey struct{}
	spanKey   struct{}
)

// WithTracer returns a child context carrying t. A nil tracer is stored as
// Nop so FromContext never has to second-guess the value.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer carried by ctx, or Nop when there is none.
// Call sites never need to branch on the result.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	t, ok := ctx.Value(tracerKey{}).(Tracer)
	if !ok {
		return Nop
	}
	return t
}

// SpanContext identifies the span a context is currently inside. It crosses
// goroutine boundaries with the context itself, which is how a script
// pipeline running on a worker goroutine parents its spans onto the run
// span that scheduled it.
type SpanContext struct {
	SpanID uint64
	GID    uint64
}

// WithSpanContext returns a child context whose current span is sc.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, spanKey{}, sc)
}

// CurrentSpan returns the span recorded in ctx. Outside any span it returns
// the zero SpanContext; a zero SpanID parents new spans at the root, which
// is what an untraced call site wants.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	sc, _ := ctx.Value(spanKey{}).(SpanContext)
	return sc
}
