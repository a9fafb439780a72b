// Package main implements the kiln CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kiln/internal/observ"
	"kiln/internal/pipeline"
	"kiln/internal/project"
	"kiln/internal/trace"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] [path | scripts...]",
	Short: "Compile project scripts",
	Long: "Compile project scripts against their scope classpath, using kiln.toml as the project definition.\n" +
		"With no arguments every script under the project is compiled; a directory argument picks the\n" +
		"project to scan, and explicit script paths compile just those scripts.",
	Args: cobra.ArbitraryArgs,
	RunE: compileExecution,
}

func init() {
	compileCmd.Flags().Int("jobs", 0, "maximum concurrent compilations (0 = GOMAXPROCS)")
	compileCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	compileCmd.Flags().String("out", "", "output root for compiled scripts (default <project>/target/scripts)")
}

// scriptOutcome captures one script's run for reporting after the pool
// drains. Failed compilations land here instead of aborting the group.
type scriptOutcome struct {
	script string
	result pipeline.CompileScriptResult
	err    error
}

func compileExecution(cmd *cobra.Command, args []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	outValue, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	cleanupTrace, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanupTrace()

	cleanupProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanupProf()

	// Дамп кольца трассировки до закрытия tracer'а.
	defer dumpTraceOnPanic(cmd)

	startDir := "."
	var explicit []string
	if len(args) > 0 {
		if info, statErr := os.Stat(args[0]); len(args) == 1 && statErr == nil && info.IsDir() {
			startDir = args[0]
		} else {
			// Явно перечисленные скрипты; манифест ищем от первого из них.
			explicit = args
			startDir = filepath.Dir(args[0])
		}
	}
	timer := observ.NewTimer()

	phase := timer.Begin("load manifest")
	manifest, found, err := project.LoadFrom(startDir)
	if err != nil {
		return err
	}
	if !found {
		return errors.New(noKilnTomlMessage)
	}
	timer.End(phase, formatPathForOutput(manifest.Root, manifest.Path))

	phase = timer.Begin("scan scripts")
	var scripts []string
	if len(explicit) > 0 {
		scripts, err = resolveScriptArgs(explicit, manifest.Config.Compiler.SourceExt)
	} else {
		scripts, err = collectScripts(manifest)
	}
	if err != nil {
		return err
	}
	timer.End(phase, fmt.Sprintf("%d found", len(scripts)))
	if len(scripts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no scripts to compile")
		return nil
	}

	outputRoot := outValue
	if outputRoot == "" {
		outputRoot = filepath.Join(manifest.Root, "target", "scripts")
	}
	displays := displayScriptList(scripts, manifest.Root)

	phase = timer.Begin("compile scripts")
	var outcomes []scriptOutcome
	if shouldUseTUI(uiModeValue) {
		title := "kiln compile " + manifest.Config.Project.Name
		outcomes, err = runCompileWithUI(cmd.Context(), title, displays, func(ctx context.Context, sink pipeline.ProgressSink) ([]scriptOutcome, error) {
			return compileAll(ctx, manifest, scripts, outputRoot, jobs, sink)
		})
	} else {
		outcomes, err = compileAll(cmd.Context(), manifest, scripts, outputRoot, jobs, nil)
	}
	timer.End(phase, "")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	failed := 0
	for _, oc := range outcomes {
		if oc.err == nil {
			if !quiet {
				fmt.Fprintf(out, "%s %s\n", okLabel(), oc.script)
			}
			continue
		}
		failed++
		var cerr *pipeline.CompileError
		if errors.As(oc.err, &cerr) {
			fmt.Fprintf(errOut, "%s %s\n%s\n", failLabel(), oc.script, cerr.Report)
			continue
		}
		fmt.Fprintf(errOut, "%s %s: %v\n", failLabel(), oc.script, oc.err)
	}

	if showTimings {
		for _, oc := range outcomes {
			fmt.Fprintf(out, "%s\n", oc.script)
			printStageTimings(out, oc.result.Timings)
		}
		fmt.Fprint(out, timer.Summary())
	}

	if failed > 0 {
		fmt.Fprintf(errOut, "%d of %d scripts failed\n", failed, len(outcomes))
		// Диагностика уже напечатана, cobra добавлять нечего.
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("")
	}
	if !quiet {
		fmt.Fprintf(out, "compiled %d scripts\n", len(outcomes))
	}
	return nil
}

// compileAll runs every script through the pipeline with at most jobs
// concurrent compilations. Per-script failures are recorded in the outcomes;
// the returned error is reserved for engine construction and cancellation.
func compileAll(ctx context.Context, manifest *project.Manifest, scripts []string, outputRoot string, jobs int, sink pipeline.ProgressSink) ([]scriptOutcome, error) {
	names := make(map[string]string, len(scripts))
	for _, script := range scripts {
		names[script] = displayName(script, manifest.Root)
	}
	if sink != nil {
		sink = displaySink{inner: sink, names: names}
	}

	runSpan := trace.Begin(trace.FromContext(ctx), trace.ScopeRun, "compile", 0)
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: runSpan.ID()})

	eng, err := newEngine(manifest, pipeline.GenerationMonitor(sink))
	if err != nil {
		runSpan.End("error")
		return nil, err
	}
	pipeline.EmitQueued(sink, scripts)

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Результаты пишутся по уникальным индексам, мьютекс не нужен.
	outcomes := make([]scriptOutcome, len(scripts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(scripts)))

	for i, script := range scripts {
		g.Go(func(i int, script string) func() error {
			return func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				req := &pipeline.CompileScriptRequest{
					Scope:     eng.scope,
					Script:    script,
					OutputDir: outputDirFor(manifest, outputRoot, script),
					Resolver:  eng.resolver,
					Compiler:  eng.compiler,
					Translate: eng.translate,
					Progress:  sink,
				}
				res, runErr := pipeline.CompileScript(gctx, req)

				// Отказ одного скрипта не отменяет остальные.
				outcomes[i] = scriptOutcome{script: names[script], result: res, err: runErr}
				return nil
			}
		}(i, script))
	}

	if err := g.Wait(); err != nil {
		runSpan.End("canceled")
		return outcomes, err
	}
	runSpan.End(fmt.Sprintf("%d scripts", len(scripts)))
	return outcomes, nil
}

// displaySink rewrites absolute script paths into their display form before
// events reach the UI. Events keyed by other targets pass through untouched.
type displaySink struct {
	inner pipeline.ProgressSink
	names map[string]string
}

func (s displaySink) OnEvent(evt pipeline.Event) {
	if name, ok := s.names[evt.Script]; ok {
		evt.Script = name
	}
	s.inner.OnEvent(evt)
}

func okLabel() string {
	return color.New(color.FgGreen, color.Bold).Sprint("ok")
}

func failLabel() string {
	return color.New(color.FgRed, color.Bold).Sprint("error")
}
