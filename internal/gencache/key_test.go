package gencache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestKeyForStable(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "ext.kt", "fun hello() {}")

	first, err := KeyFor("extensions.jar", in)
	if err != nil {
		t.Fatalf("KeyFor() error: %v", err)
	}
	second, err := KeyFor("extensions.jar", in)
	if err != nil {
		t.Fatalf("KeyFor() error: %v", err)
	}
	if first != second {
		t.Fatalf("KeyFor() unstable: %q vs %q", first, second)
	}
}

func TestKeyForShape(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "ext.kt", "fun hello() {}")

	key, err := KeyFor("extensions.jar", in)
	if err != nil {
		t.Fatalf("KeyFor() error: %v", err)
	}
	if !strings.HasPrefix(key, "extensions-") {
		t.Fatalf("key %q does not keep the base name", key)
	}
	if !strings.HasSuffix(key, ".jar") {
		t.Fatalf("key %q does not keep the extension", key)
	}
	if err := validateKey(key); err != nil {
		t.Fatalf("KeyFor() produced an invalid cache key: %v", err)
	}
}

func TestKeyForChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "ext.kt", "fun hello() {}")

	before, err := KeyFor("extensions.jar", in)
	if err != nil {
		t.Fatalf("KeyFor() error: %v", err)
	}
	writeInput(t, dir, "ext.kt", "fun goodbye() {}")
	after, err := KeyFor("extensions.jar", in)
	if err != nil {
		t.Fatalf("KeyFor() error: %v", err)
	}
	if before == after {
		t.Fatalf("key did not change with input content")
	}
}

func TestKeyForMissingInput(t *testing.T) {
	if _, err := KeyFor("extensions.jar", filepath.Join(t.TempDir(), "absent.kt")); err == nil {
		t.Fatalf("KeyFor() with a missing input succeeded")
	}
}

func TestKeyForMissingName(t *testing.T) {
	if _, err := KeyFor(""); err == nil {
		t.Fatalf("KeyFor(\"\") succeeded")
	}
}
