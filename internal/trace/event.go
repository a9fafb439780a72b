package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a build operation.
	KindSpanBegin Kind = iota + 1 // span start
	// KindSpanEnd marks the end of a build operation.
	KindSpanEnd // span end
	// KindPoint represents an instant event.
	KindPoint     // instant event
	KindHeartbeat // periodic liveness signal
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent higher-level/coarser events.
type Scope uint8

const (
	// ScopeRun represents one whole CLI invocation (highest level).
	ScopeRun Scope = iota + 1
	// ScopeScript represents one script pipeline.
	ScopeScript
	// ScopeStage represents one stage inside a script (resolve, compile).
	ScopeStage
	ScopeCache // artifact cache internals (most detailed)
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopeScript:
		return "script"
	case ScopeStage:
		return "stage"
	case ScopeCache:
		return "cache"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // unique span identifier
	ParentID uint64            // parent span (0 if root)
	GID      uint64            // goroutine ID (for concurrent spans)
	Name     string            // e.g., "resolve", "script:build.kts"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}
