package gencache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStatsCountsOnlyArtifacts(t *testing.T) {
	dir := t.TempDir()
	cache, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	gen := Generator{
		TotalUnits: 1,
		Write: func(_ context.Context, dest string, report func(int)) error {
			report(1)
			return os.WriteFile(dest, []byte("payload"), 0o600)
		},
	}
	if _, err := cache.Obtain(context.Background(), "demo.jar", gen); err != nil {
		t.Fatalf("Obtain() error: %v", err)
	}
	// Чужой temp-файл не должен попасть в подсчёт.
	if err := os.WriteFile(filepath.Join(dir, tmpPrefix+"leftover"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}

	stats, err := cache.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.Artifacts != 1 {
		t.Fatalf("Artifacts = %d, want 1", stats.Artifacts)
	}
	if stats.Bytes != int64(len("payload")) {
		t.Fatalf("Bytes = %d, want %d", stats.Bytes, len("payload"))
	}
}

func TestStatsMissingDirIsEmpty(t *testing.T) {
	cache := &Cache{dir: filepath.Join(t.TempDir(), "never-created")}
	stats, err := cache.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.Artifacts != 0 || stats.Bytes != 0 {
		t.Fatalf("stats = %+v, want zero", stats)
	}
}
