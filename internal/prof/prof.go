// Package prof drives the runtime profilers for one build invocation.
package prof

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options selects which profiles a session captures. Empty paths leave the
// corresponding profiler off.
type Options struct {
	// CPUPath receives a pprof CPU profile.
	CPUPath string
	// MemPath receives a heap profile, written when the session stops.
	MemPath string
	// TracePath receives a runtime execution trace.
	TracePath string
}

func (o Options) empty() bool {
	return o.CPUPath == "" && o.MemPath == "" && o.TracePath == ""
}

// Session owns the files backing the active profilers. A nil session is a
// valid no-op, so callers can hold the result of Start unconditionally.
type Session struct {
	cpuFile   *os.File
	traceFile *os.File
	memPath   string
	stopped   bool
}

// Start enables the profilers selected in opts and returns the session that
// owns them. It returns a nil session when opts selects nothing. When one
// profiler fails to start, every profiler already running is stopped again.
func Start(opts Options) (*Session, error) {
	if opts.empty() {
		return nil, nil
	}

	s := &Session{memPath: opts.MemPath}

	if opts.CPUPath != "" {
		f, err := os.Create(opts.CPUPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to start cpu profile: %w", err)
		}
		s.cpuFile = f
	}

	if opts.TracePath != "" {
		f, err := os.Create(opts.TracePath)
		if err != nil {
			s.unwind()
			return nil, fmt.Errorf("failed to create runtime trace: %w", err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.unwind()
			return nil, fmt.Errorf("failed to start runtime trace: %w", err)
		}
		s.traceFile = f
	}

	return s, nil
}

// unwind stops the profilers already running after a partial Start.
func (s *Session) unwind() {
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		_ = s.cpuFile.Close()
		s.cpuFile = nil
	}
}

// Stop halts the active profilers and writes the heap profile when one was
// requested. It is safe on nil sessions and idempotent.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true

	var firstErr error

	if s.traceFile != nil {
		trace.Stop()
		if err := s.traceFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close runtime trace: %w", err)
		}
		s.traceFile = nil
	}

	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := s.cpuFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close cpu profile: %w", err)
		}
		s.cpuFile = nil
	}

	if s.memPath != "" {
		if err := writeHeap(s.memPath); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// writeHeap captures a heap profile to the supplied file path.
func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile: %w", err)
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close heap profile: %w", err)
	}
	return nil
}
