// Package report renders the fatal diagnostics of one compilation attempt
// into a single human-readable message with caret-aligned source excerpts.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"kiln/internal/diag"
)

// ErrEmptyBatch indicates report construction from a batch with no fatal
// diagnostics. That is a bug in the caller, not a compilation outcome.
var ErrEmptyBatch = errors.New("cannot build a compilation report from an empty diagnostic batch")

// Report is the aggregate form of one failed compilation. The rendered text
// is a stable contract: the same batch always produces the same bytes.
type Report struct {
	text      string
	firstLine int
}

// New renders the batch in arrival order.
func New(batch []diag.Diagnostic) (*Report, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	r := &Report{firstLine: -1}
	for _, d := range batch {
		if d.Location.Located() {
			r.firstLine = d.Location.Line
			break
		}
	}
	r.text = render(batch)
	return r, nil
}

// Text returns the rendered report.
func (r *Report) Text() string {
	return r.text
}

// FirstErrorLine returns the line number of the first located diagnostic, for
// editors that want to jump to the failure. ok is false when no diagnostic
// carried a position.
func (r *Report) FirstErrorLine() (line int, ok bool) {
	if r.firstLine < 0 {
		return 0, false
	}
	return r.firstLine, true
}

func render(batch []diag.Diagnostic) string {
	width := lineNumberWidth(batch)
	sections := make([]string, 0, len(batch)+2)
	sections = append(sections, "Script compilation "+plural(len(batch))+":")
	for _, d := range batch {
		sections = append(sections, indent(block(d, width), "  "))
	}
	sections = append(sections, fmt.Sprintf("%d %s", len(batch), plural(len(batch))))
	return strings.Join(sections, "\n\n")
}

func plural(n int) string {
	if n == 1 {
		return "error"
	}
	return "errors"
}

// lineNumberWidth returns the decimal width of the largest line number among
// located diagnostics. Line numbers are zero-padded to it so excerpts align.
func lineNumberWidth(batch []diag.Diagnostic) int {
	widest := 0
	for _, d := range batch {
		if d.Location.Located() && d.Location.Line > widest {
			widest = d.Location.Line
		}
	}
	if widest == 0 {
		return 1
	}
	return len(strconv.Itoa(widest))
}

// block renders one diagnostic. Located diagnostics show the offending source
// line with a caret under the reported column; the rest is the bare message.
func block(d diag.Diagnostic, width int) string {
	if !d.Location.Located() {
		return d.Message
	}
	loc := d.Location
	prefix := fmt.Sprintf("Line %0*d: ", width, loc.Line)
	column := loc.Column
	if column < 0 {
		column = 0
	}
	pad := strings.Repeat(" ", len(prefix)+column)

	lines := strings.Split(d.Message, "\n")
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(loc.Content)
	b.WriteString("\n")
	b.WriteString(pad)
	b.WriteString("^ ")
	b.WriteString(lines[0])
	for _, cont := range lines[1:] {
		b.WriteString("\n")
		b.WriteString(pad)
		b.WriteString("  ")
		b.WriteString(cont)
	}
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
