package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives every event the build emits. Implementations decide where
// events go; filtering by scope happens here too, so emitters stay dumb.
type Tracer interface {
	// Emit records one event. Must be safe for concurrent use.
	Emit(ev *Event)

	// Flush pushes buffered events to their destination.
	Flush() error

	// Close flushes and releases whatever the tracer holds open.
	Close() error

	// Level returns the configured tracing level.
	Level() Level

	// Enabled reports whether the tracer records anything at all.
	Enabled() bool
}

// StorageMode says where events live while the build runs.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written out as they happen
	ModeRing                          // kept in a circular buffer
	ModeBoth                          // both at once
)

func (m StorageMode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRing:
		return "ring"
	case ModeBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseMode converts a CLI flag value to a StorageMode.
func ParseMode(s string) (StorageMode, error) {
	switch strings.ToLower(s) {
	case "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	case "both":
		return ModeBoth, nil
	default:
		return ModeStream, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
	}
}

const defaultRingSize = 4096

// Config describes the tracer to build. The zero value means tracing off.
type Config struct {
	Level      Level         // how deep the trace goes
	Mode       StorageMode   // stream, ring, or both
	Format     Format        // FormatAuto picks by output extension
	Output     io.Writer     // stream destination; nil falls back to OutputPath
	OutputPath string        // file path, "-" or empty for stderr
	RingSize   int           // ring capacity, 0 for the default
	Heartbeat  time.Duration // beat interval, 0 disables beats
}

// detectFormat picks an output format from the trace file extension:
// .ndjson means JSON lines, .json means a chrome://tracing document, and
// anything else (stderr included) gets plain text.
func detectFormat(path string) Format {
	switch {
	case strings.HasSuffix(path, ".ndjson"):
		return FormatNDJSON
	case strings.HasSuffix(path, ".json"):
		return FormatChrome
	default:
		return FormatText
	}
}

// New builds the tracer cfg describes. LevelOff yields Nop, so callers can
// construct unconditionally and let the config decide.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}

	format := cfg.Format
	if format == FormatAuto {
		format = detectFormat(cfg.OutputPath)
	}
	size := cfg.RingSize
	if size <= 0 {
		size = defaultRingSize
	}

	switch cfg.Mode {
	case ModeRing:
		return NewRingTracer(size, cfg.Level), nil

	case ModeStream:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		return NewStreamTracer(w, cfg.Level, format), nil

	case ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		return NewMultiTracer(cfg.Level,
			NewStreamTracer(w, cfg.Level, format),
			NewRingTracer(size, cfg.Level)), nil

	default:
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}
}

// openOutput resolves the stream destination: an explicit writer wins, then
// a file path, then stderr.
func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return os.Stderr, nil
	}

	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}
