package trace

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestLevelShouldEmit(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeRun, false},
		{LevelRun, ScopeRun, true},
		{LevelRun, ScopeScript, false},
		{LevelScript, ScopeScript, true},
		{LevelScript, ScopeStage, false},
		{LevelStage, ScopeStage, true},
		{LevelStage, ScopeCache, false},
		{LevelDebug, ScopeCache, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Errorf("%v.ShouldEmit(%v) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "off", want: LevelOff},
		{in: "STAGE", want: LevelStage},
		{in: "debug", want: LevelDebug},
		{in: "verbose", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q) expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	if _, err := ParseMode("sideways"); err == nil {
		t.Errorf("ParseMode(sideways) expected error")
	}
	got, err := ParseMode("BOTH")
	if err != nil {
		t.Fatalf("ParseMode(BOTH) failed: %v", err)
	}
	if got != ModeBoth {
		t.Errorf("ParseMode(BOTH) = %v, want %v", got, ModeBoth)
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelStage, FormatNDJSON)

	span := Begin(tr, ScopeScript, "script:build.kts", 0)
	span.WithExtra("status", "ok").End("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 events, got %d: %q", len(lines), buf.String())
	}

	var begin, end map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &begin); err != nil {
		t.Fatalf("failed to decode begin event: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("failed to decode end event: %v", err)
	}

	if begin["kind"] != "begin" || end["kind"] != "end" {
		t.Errorf("unexpected kinds: %v / %v", begin["kind"], end["kind"])
	}
	if begin["scope"] != "script" {
		t.Errorf("expected scope script, got %v", begin["scope"])
	}
	if end["detail"] != "done" {
		t.Errorf("expected detail done, got %v", end["detail"])
	}
}

func TestSpanBelowLevelIsSilent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelRun, FormatNDJSON)

	span := Begin(tr, ScopeStage, "resolve", 0)
	span.End("")

	if buf.Len() != 0 {
		t.Fatalf("expected no events below level, got %q", buf.String())
	}
}

func TestRingTracerWrapsAround(t *testing.T) {
	ring := NewRingTracer(4, LevelDebug)
	for i := 0; i < 6; i++ {
		Point(ring, ScopeRun, "tick", strconv.Itoa(i))
	}

	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events after wrap, got %d", len(events))
	}
	if events[0].Detail != "2" || events[3].Detail != "5" {
		t.Errorf("unexpected window: first %q last %q", events[0].Detail, events[3].Detail)
	}
}

func TestRingUnwrap(t *testing.T) {
	ring := NewRingTracer(8, LevelDebug)
	stream := NewStreamTracer(&bytes.Buffer{}, LevelDebug, FormatText)
	multi := NewMultiTracer(LevelDebug, stream, ring)

	if got := Ring(multi); got != ring {
		t.Errorf("Ring(multi) = %v, want the ring tracer", got)
	}
	if got := Ring(stream); got != nil {
		t.Errorf("Ring(stream) = %v, want nil", got)
	}
}

func TestChromeOutputIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatChrome)

	span := Begin(tr, ScopeRun, "compile", 0)
	span.End("2 scripts")
	Point(tr, ScopeCache, "cache:extensions.jar", "reuse")

	if err := tr.Close(); err != nil {
		t.Fatalf("failed to close tracer: %v", err)
	}

	var doc struct {
		TraceEvents []struct {
			Name string `json:"name"`
			Cat  string `json:"cat"`
			Ph   string `json:"ph"`
		} `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("chrome output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(doc.TraceEvents) != 3 {
		t.Fatalf("expected 3 events, got %d", len(doc.TraceEvents))
	}
	if doc.TraceEvents[0].Ph != "B" || doc.TraceEvents[1].Ph != "E" || doc.TraceEvents[2].Ph != "i" {
		t.Errorf("unexpected phases: %+v", doc.TraceEvents)
	}
}

func TestNewPicksFormatFromExtension(t *testing.T) {
	tr, err := New(Config{
		Level:      LevelStage,
		Mode:       ModeStream,
		OutputPath: filepath.Join(t.TempDir(), "build.ndjson"),
	})
	if err != nil {
		t.Fatalf("failed to create tracer: %v", err)
	}
	defer func() {
		if err := tr.Close(); err != nil {
			t.Errorf("failed to close tracer: %v", err)
		}
	}()

	st, ok := tr.(*StreamTracer)
	if !ok {
		t.Fatalf("expected stream tracer, got %T", tr)
	}
	if st.format != FormatNDJSON {
		t.Errorf("expected NDJSON format for .ndjson output, got %v", st.format)
	}
}

func TestNewOffReturnsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("failed to create tracer: %v", err)
	}
	if tr != Nop {
		t.Fatalf("expected Nop tracer, got %T", tr)
	}
}

func TestHeartbeatRequiresEnabledTracer(t *testing.T) {
	if h := StartHeartbeat(Nop, time.Second); h != nil {
		t.Fatalf("expected nil heartbeat for disabled tracer")
	}

	var h *Heartbeat
	h.Stop() // must not panic
}
