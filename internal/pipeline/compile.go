// Package pipeline orchestrates script compilation: classpath resolution,
// derived artifact generation, the external compiler run, and the aggregation
// of fatal compiler diagnostics into a single report.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"kiln/internal/artifact"
	"kiln/internal/classpath"
	"kiln/internal/ctxlog"
	"kiln/internal/diag"
	"kiln/internal/environ"
	"kiln/internal/report"
	"kiln/internal/trace"
)

// Job describes one compiler invocation: what to compile, against what, into
// where.
type Job struct {
	// SourceRoots lists the script files or directories handed to the
	// compiler.
	SourceRoots []string
	// Classpath is the resolved compile classpath.
	Classpath *artifact.Set
	// OutputDir receives the compiled classes.
	OutputDir string
}

// Compiler is the black-box script compiler front end. Compile returns
// ok=false when the compiler rejected the input and reported its fatal
// diagnostics to the sink; err is non-nil only for faults inside the compiler
// itself.
type Compiler interface {
	Compile(ctx context.Context, job Job, sink *diag.Collector) (ok bool, err error)
}

// CompileError carries the aggregate report of one failed compilation. Its
// message is the full report text, byte for byte.
type CompileError struct {
	Script string
	Report string
	// FirstErrorLine is the line of the first located fatal diagnostic, zero
	// when none carried a position.
	FirstErrorLine int
}

func (e *CompileError) Error() string {
	return e.Report
}

// InternalError distinguishes a fault inside the compiler from rejected
// input.
type InternalError struct {
	Script string
	Err    error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal compiler error while compiling %q: %v", e.Script, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// CompileScriptRequest configures one script compilation.
type CompileScriptRequest struct {
	// Scope is the locked compilation scope the script resolves against.
	Scope *environ.Scope
	// Script is the script file handed to the compiler.
	Script string
	// OutputDir receives the compiled classes.
	OutputDir string
	// Resolver computes the scope classpath. Shared across scripts.
	Resolver *classpath.Resolver
	// Compiler runs the actual compilation.
	Compiler Compiler
	// Translate rewrites script paths for logs. Optional.
	Translate diag.PathTranslator
	// Progress receives stage events. Optional.
	Progress ProgressSink
}

// CompileScriptResult captures one script compilation.
type CompileScriptResult struct {
	Script    string
	OutputDir string
	Classpath *artifact.Set
	Timings   Timings
}

// CompileScript resolves the scope classpath and runs the compiler on one
// script. A rejected script comes back as *CompileError whose message is the
// aggregate diagnostic report; a fault inside the compiler comes back as
// *InternalError.
func CompileScript(ctx context.Context, req *CompileScriptRequest) (CompileScriptResult, error) {
	var result CompileScriptResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing compile request")
	}
	result.Script = req.Script
	result.OutputDir = req.OutputDir
	if req.Script == "" {
		return result, fmt.Errorf("missing script path")
	}
	if req.Resolver == nil {
		return result, fmt.Errorf("missing classpath resolver")
	}
	if req.Compiler == nil {
		return result, fmt.Errorf("missing compiler")
	}

	logger := ctxlog.FromContext(ctx)

	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeScript, "script:"+filepath.Base(req.Script), trace.CurrentSpan(ctx).SpanID)

	resolveStart := time.Now()
	emitStage(req.Progress, req.Script, StageResolve, StatusWorking, nil, 0)
	rsp := trace.Begin(tr, trace.ScopeStage, "resolve", span.ID())
	cp, err := req.Resolver.ClasspathFor(trace.WithSpanContext(ctx, trace.SpanContext{SpanID: rsp.ID()}), req.Scope)
	if err != nil {
		rsp.End("error")
		span.End("failed")
		emitStage(req.Progress, req.Script, StageResolve, StatusError, err, time.Since(resolveStart))
		return result, err
	}
	rsp.End(fmt.Sprintf("%d entries", cp.Len()))
	result.Classpath = cp
	result.Timings.Set(StageResolve, time.Since(resolveStart))
	emitStage(req.Progress, req.Script, StageResolve, StatusDone, nil, time.Since(resolveStart))
	logger.Debug("classpath resolved",
		"script", req.Script,
		"scope", req.Scope.Name(),
		"entries", cp.Len(),
	)

	collector := diag.NewCollector(logger, req.Translate)
	job := Job{
		SourceRoots: []string{req.Script},
		Classpath:   cp,
		OutputDir:   req.OutputDir,
	}

	compileStart := time.Now()
	emitStage(req.Progress, req.Script, StageCompile, StatusWorking, nil, 0)
	csp := trace.Begin(tr, trace.ScopeStage, "compile", span.ID())
	ok, err := req.Compiler.Compile(ctx, job, collector)
	elapsed := time.Since(compileStart)
	result.Timings.Set(StageCompile, elapsed)

	if err != nil {
		csp.End("internal error")
		span.End("failed")
		// Сбой в самом компиляторе, а не в скрипте. Фиксируем его и как
		// фатальную диагностику: у внешнего лога остаётся запись с путём.
		collector.Report(diag.SevError,
			fmt.Sprintf("internal compiler error: %v", err),
			&diag.Location{Path: req.Script, Line: -1, Column: -1})
		wrapped := &InternalError{Script: req.Script, Err: err}
		emitStage(req.Progress, req.Script, StageCompile, StatusError, wrapped, elapsed)
		return result, wrapped
	}
	if !ok || collector.HasErrors() {
		csp.End("rejected")
		span.End("failed")
		cerr := failure(req.Script, collector)
		emitStage(req.Progress, req.Script, StageCompile, StatusError, cerr, elapsed)
		return result, cerr
	}

	csp.End("ok")
	span.End("ok")
	emitStage(req.Progress, req.Script, StageCompile, StatusDone, nil, elapsed)
	return result, nil
}

// failure renders the collector's batch into the aggregate compilation error.
func failure(script string, collector *diag.Collector) *CompileError {
	batch := collector.Batch()
	if len(batch) == 0 {
		// Компилятор отказал, не оставив ни одной фатальной диагностики.
		batch = []diag.Diagnostic{{
			Severity: diag.SevError,
			Message:  "compilation failed without diagnostics",
		}}
	}
	rep, err := report.New(batch)
	if err != nil {
		// Батч выше всегда непустой; сюда можно попасть только при поломке
		// контракта report.New.
		return &CompileError{Script: script, Report: err.Error()}
	}
	cerr := &CompileError{Script: script, Report: rep.Text()}
	if line, ok := rep.FirstErrorLine(); ok {
		cerr.FirstErrorLine = line
	}
	return cerr
}

// EmitQueued marks every script as waiting before the run starts.
func EmitQueued(sink ProgressSink, scripts []string) {
	if sink == nil {
		return
	}
	for _, script := range scripts {
		sink.OnEvent(Event{Script: script, Stage: StageResolve, Status: StatusQueued})
	}
}

func emitStage(sink ProgressSink, script string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Script: script, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
