package observ

import (
	"strings"
	"testing"
)

func TestTimerSummary(t *testing.T) {
	timer := NewTimer()
	idx := timer.Begin("load manifest")
	timer.End(idx, "kiln.toml")
	idx = timer.Begin("scan scripts")
	timer.End(idx, "")

	out := timer.Summary()
	if !strings.HasPrefix(out, "timings:\n") {
		t.Fatalf("summary missing header:\n%s", out)
	}
	for _, want := range []string{"load manifest", "kiln.toml", "scan scripts", "total"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("summary has %d lines, want 4:\n%s", len(lines), out)
	}
}

func TestTimerEndIgnoresUnknownIndex(t *testing.T) {
	timer := NewTimer()
	timer.End(0, "never began")
	timer.End(-1, "negative")

	out := timer.Summary()
	if strings.Contains(out, "never began") {
		t.Fatalf("phantom phase leaked into summary:\n%s", out)
	}
}
