package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStartWithNothingSelected(t *testing.T) {
	s, err := Start(Options{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil session for empty options, got %+v", s)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("nil session Stop failed: %v", err)
	}
}

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPUPath:   filepath.Join(dir, "cpu.pprof"),
		MemPath:   filepath.Join(dir, "heap.pprof"),
		TracePath: filepath.Join(dir, "run.trace"),
	}

	s, err := Start(opts)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Повторный Stop не должен ничего ломать.
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}

	for _, path := range []string{opts.CPUPath, opts.MemPath, opts.TracePath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("profile %s missing: %v", filepath.Base(path), err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("profile %s is empty", filepath.Base(path))
		}
	}
}

func TestStartFailsOnBadPath(t *testing.T) {
	dir := t.TempDir()
	_, err := Start(Options{CPUPath: filepath.Join(dir, "missing", "cpu.pprof")})
	if err == nil {
		t.Fatalf("expected error for unwritable cpu profile path")
	}
}
