package environ

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestPathSourceLocations(t *testing.T) {
	src := PathSource{"/lib/a.jar", "/lib/b.jar"}
	locs := src.Locations()
	if len(locs) != 2 {
		t.Fatalf("Locations() returned %d entries, want 2", len(locs))
	}
	for _, loc := range locs {
		if !loc.IsFileBacked() {
			t.Fatalf("location %q reported as not file-backed", loc.Path)
		}
	}
}

func TestDirSourceListsArchivesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jar", "a.jar", "notes.txt", "c.ZIP"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.jar"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var got []string
	for _, loc := range DirSource(dir).Locations() {
		got = append(got, filepath.Base(loc.Path))
	}
	want := []string{"a.jar", "b.jar", "c.ZIP"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Locations() = %v, want %v", got, want)
	}
}

func TestDirSourceMissingDirectory(t *testing.T) {
	src := DirSource(filepath.Join(t.TempDir(), "absent"))
	if locs := src.Locations(); len(locs) != 0 {
		t.Fatalf("Locations() = %v, want empty", locs)
	}
}

func TestHandleParentChain(t *testing.T) {
	root := NewHandle("root", nil)
	mid := NewHandle("mid", root)
	leaf := NewHandle("leaf", mid)

	if got := leaf.Parent(); got != mid {
		t.Fatalf("leaf.Parent() = %v, want mid", got.Name())
	}
	if got := mid.Parent(); got != root {
		t.Fatalf("mid.Parent() = %v, want root", got.Name())
	}
	if got := root.Parent(); got != nil {
		t.Fatalf("root.Parent() = %v, want nil", got.Name())
	}
}

func TestScopeLockIsIdempotent(t *testing.T) {
	scope := NewScope("scripts", nil, nil)
	if scope.Locked() {
		t.Fatalf("new scope is locked")
	}
	scope.Lock()
	scope.Lock()
	if !scope.Locked() {
		t.Fatalf("scope not locked after Lock()")
	}
}

func TestUnlockedScopeErrorMessage(t *testing.T) {
	err := &UnlockedScopeError{Scope: "scripts"}
	want := `classpath requested for unlocked scope "scripts"`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
