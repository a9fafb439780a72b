package trace

import "fmt"

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff    Level = iota // no tracing
	LevelRun                 // run boundaries only
	LevelScript              // run + per-script spans
	LevelStage               // stage boundaries inside scripts
	LevelDebug               // everything including cache internals
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelRun:
		return "run"
	case LevelScript:
		return "script"
	case LevelStage:
		return "stage"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "off", "OFF":
		return LevelOff, nil
	case "run", "RUN":
		return LevelRun, nil
	case "script", "SCRIPT":
		return LevelScript, nil
	case "stage", "STAGE":
		return LevelStage, nil
	case "debug", "DEBUG":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|run|script|stage|debug)", s)
	}
}

// ShouldEmit returns true if the given scope should emit at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelOff:
		return false
	case LevelRun:
		return scope <= ScopeRun
	case LevelScript:
		return scope <= ScopeScript
	case LevelStage:
		return scope <= ScopeStage
	case LevelDebug:
		return true
	}
	return false
}
