// Package trace records build operations as structured span events.
//
// Tracing is wired through the CLI:
//
//	kiln compile --trace=build.ndjson --trace-level=stage
//
// writes one event per span boundary while the build runs. Events carry a
// scope that tells how deep in the build they sit, and the tracing level
// selects how deep the stream goes.
//
// # Tracers
//
//   - Nop: zero-overhead no-op when tracing is disabled
//   - StreamTracer: immediate write to a file or stderr
//   - RingTracer: circular in-memory buffer, dumped on panic
//   - MultiTracer: fans out to several tracers
//
// # Scopes
//
//   - ScopeRun: one CLI invocation
//   - ScopeScript: one script pipeline
//   - ScopeStage: one stage inside a script (resolve, generate, compile)
//   - ScopeCache: artifact cache internals
//
// # Context propagation
//
// The tracer travels through the build via context, and spans parent onto
// whatever span the context carries:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeScript, "script:build.kts", trace.CurrentSpan(ctx).SpanID)
//	defer span.End("")
package trace
