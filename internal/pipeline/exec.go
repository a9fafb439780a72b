package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"kiln/internal/ctxlog"
	"kiln/internal/diag"
	"kiln/internal/source"
)

// diagLine matches "path:line:column: severity: message".
var diagLine = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*([A-Za-z_ -]+?):\s?(.*)$`)

// ExecCompiler runs an external script compiler as a subprocess and parses
// its stderr stream into diagnostics.
//
// Recognized stderr lines look like "path:line:column: severity: message".
// A line starting with whitespace continues the previous message; any other
// line is forwarded as verbose output so nothing is dropped. Exit code 1
// means the compiler rejected the input; any other non-zero exit is a fault
// in the compiler itself.
type ExecCompiler struct {
	// Command is the compiler executable.
	Command string
	// Args go before the classpath, output, and source arguments.
	Args []string
	// Sources resolves source line content for located diagnostics.
	// Optional.
	Sources *source.FileSet
}

// Compile implements Compiler.
func (c *ExecCompiler) Compile(ctx context.Context, job Job, sink *diag.Collector) (bool, error) {
	if c.Command == "" {
		return false, errors.New("missing compiler command")
	}
	args := c.buildArgs(job)

	// #nosec G204 -- команду компилятора задаёт манифест проекта
	cmd := exec.CommandContext(ctx, c.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger := ctxlog.FromContext(ctx)
	logger.Debug("running script compiler",
		"command", c.Command,
		"sources", len(job.SourceRoots),
		"classpath", job.Classpath.Len(),
	)

	runErr := cmd.Run()
	c.parseStderr(stderr.String(), sink)

	if runErr == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 1 {
		// Обычный отказ: диагностики уже у коллектора.
		return false, nil
	}
	return false, fmt.Errorf("compiler %q failed: %w", c.Command, runErr)
}

func (c *ExecCompiler) buildArgs(job Job) []string {
	args := make([]string, 0, len(c.Args)+4+len(job.SourceRoots))
	args = append(args, c.Args...)
	if !job.Classpath.IsEmpty() {
		args = append(args, "-classpath", job.Classpath.JoinPaths())
	}
	if job.OutputDir != "" {
		args = append(args, "-d", job.OutputDir)
	}
	args = append(args, job.SourceRoots...)
	return args
}

// parseStderr walks the stderr stream line by line, assembling multi-line
// messages before handing them to the collector. Messages are normalized to
// NFC so the report renders identically regardless of how the compiler
// composed its output.
func (c *ExecCompiler) parseStderr(stderr string, sink *diag.Collector) {
	var (
		pending bool
		sev     diag.Severity
		message strings.Builder
		loc     *diag.Location
	)
	flush := func() {
		if !pending {
			return
		}
		sink.Report(sev, message.String(), loc)
		pending = false
		message.Reset()
		loc = nil
	}

	for _, raw := range strings.Split(stderr, "\n") {
		line := strings.TrimRight(raw, "\r")
		if line == "" {
			flush()
			continue
		}
		if m := diagLine.FindStringSubmatch(line); m != nil {
			flush()
			lineNum, _ := strconv.Atoi(m[2])
			colNum, _ := strconv.Atoi(m[3])
			sev = diag.ParseSeverity(m[4])
			loc = &diag.Location{Path: m[1], Line: lineNum, Column: colNum}
			if c.Sources != nil {
				loc.Content = c.Sources.LineAt(m[1], lineNum)
			}
			message.WriteString(norm.NFC.String(m[5]))
			pending = true
			continue
		}
		if pending && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			// Продолжение многострочного сообщения.
			message.WriteString("\n")
			message.WriteString(norm.NFC.String(strings.TrimLeft(line, " \t")))
			continue
		}
		flush()
		sink.Report(diag.SevTrace, norm.NFC.String(line), nil)
	}
	flush()
}
