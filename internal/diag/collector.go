package diag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"kiln/internal/ctxlog"
)

// PathTranslator rewrites a script path for display. Implementations must be
// pure: same input, same output, no side effects.
type PathTranslator func(path string) string

// Collector receives the message stream of one compilation attempt. Fatal
// messages accumulate into the batch in arrival order; everything else is
// only logged. Safe for concurrent use.
type Collector struct {
	logger    *slog.Logger
	translate PathTranslator

	mu    sync.Mutex
	batch []Diagnostic
}

// NewCollector creates a collector that logs through logger. A nil logger
// discards log output; a nil translate leaves paths untouched.
func NewCollector(logger *slog.Logger, translate PathTranslator) *Collector {
	if logger == nil {
		logger = ctxlog.Discard()
	}
	if translate == nil {
		translate = func(path string) string { return path }
	}
	return &Collector{logger: logger, translate: translate}
}

// Report classifies one compiler message. Fatal messages are appended to the
// batch and logged at error level; warnings and infos log at info level;
// verbose output logs at trace level; unknown severities log at debug level
// tagged with the raw severity.
func (c *Collector) Report(sev Severity, message string, loc *Location) {
	switch sev {
	case SevError:
		c.mu.Lock()
		c.batch = append(c.batch, Diagnostic{Severity: sev, Message: message, Location: loc})
		c.mu.Unlock()
		c.log(slog.LevelError, message, loc)
	case SevStrongWarning, SevWarning, SevInfo:
		c.log(slog.LevelInfo, message, loc)
	case SevTrace:
		c.log(ctxlog.LevelTrace, message, loc)
	default:
		c.log(slog.LevelDebug, message, loc, slog.String("severity", sev.String()))
	}
}

// ReportDiagnostic is Report for an already assembled Diagnostic.
func (c *Collector) ReportDiagnostic(d Diagnostic) {
	c.Report(d.Severity, d.Message, d.Location)
}

// log renders lazily: the display form is built only when the sink actually
// has the level enabled.
func (c *Collector) log(level slog.Level, message string, loc *Location, attrs ...slog.Attr) {
	ctx := context.Background()
	if !c.logger.Enabled(ctx, level) {
		return
	}
	c.logger.LogAttrs(ctx, level, c.render(message, loc), attrs...)
}

// render formats one message: "path:line:column: message" when the location
// carries a full position, "path: message" when it only names a file, the
// bare message otherwise.
func (c *Collector) render(message string, loc *Location) string {
	if loc == nil {
		return message
	}
	path := c.translate(loc.Path)
	if loc.Line >= 0 && loc.Column >= 0 {
		return fmt.Sprintf("%s:%d:%d: %s", path, loc.Line, loc.Column, message)
	}
	return fmt.Sprintf("%s: %s", path, message)
}

// HasErrors reports whether any fatal messages accumulated.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batch) > 0
}

// Batch returns a copy of the accumulated fatal diagnostics in arrival order.
func (c *Collector) Batch() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.batch))
	copy(out, c.batch)
	return out
}

// Clear resets the batch for the next independent compilation attempt.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batch = nil
}
