package classpath

import (
	"errors"
	"reflect"
	"testing"

	"kiln/internal/environ"
)

// countingSource считает обращения, чтобы проверять мемоизацию.
type countingSource struct {
	calls int
	paths []string
}

func (s *countingSource) Locations() []environ.Location {
	s.calls++
	out := make([]environ.Location, len(s.paths))
	for i, p := range s.paths {
		out[i] = environ.Location{Path: p}
	}
	return out
}

type staticSource []environ.Location

func (s staticSource) Locations() []environ.Location {
	return []environ.Location(s)
}

func TestResolveOwnBeforeInherited(t *testing.T) {
	root := environ.NewHandle("root", nil, environ.PathSource{"/root/a.jar", "/root/b.jar"})
	child := environ.NewHandle("child", root, environ.PathSource{"/child/c.jar"})

	set, err := NewIndex().Resolve(child)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := []string{"/child/c.jar", "/root/a.jar", "/root/b.jar"}
	if got := set.Paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveFirstOccurrenceWins(t *testing.T) {
	root := environ.NewHandle("root", nil, environ.PathSource{"/shared.jar", "/root-only.jar"})
	child := environ.NewHandle("child", root, environ.PathSource{"/shared.jar", "/child.jar"})

	set, err := NewIndex().Resolve(child)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := []string{"/shared.jar", "/child.jar", "/root-only.jar"}
	if got := set.Paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveSkipsNonFileBacked(t *testing.T) {
	layer := environ.NewHandle("layer", nil, staticSource{
		{Path: ""},
		{Path: "/real.jar"},
		{Path: ""},
	})

	set, err := NewIndex().Resolve(layer)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := []string{"/real.jar"}
	if got := set.Paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveMemoizesLayers(t *testing.T) {
	rootSrc := &countingSource{paths: []string{"/root.jar"}}
	childSrc := &countingSource{paths: []string{"/child.jar"}}
	root := environ.NewHandle("root", nil, rootSrc)
	child := environ.NewHandle("child", root, childSrc)

	ix := NewIndex()
	first, err := ix.Resolve(child)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	second, err := ix.Resolve(child)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if first != second {
		t.Fatalf("repeated Resolve() returned a different set")
	}
	// Резолвинг ребёнка уже материализовал родителя.
	if _, err := ix.Resolve(root); err != nil {
		t.Fatalf("Resolve(root) error: %v", err)
	}
	if rootSrc.calls != 1 || childSrc.calls != 1 {
		t.Fatalf("source calls = root %d, child %d, want 1 and 1", rootSrc.calls, childSrc.calls)
	}
}

func TestResolveNilHandle(t *testing.T) {
	set, err := NewIndex().Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve(nil) error: %v", err)
	}
	if !set.IsEmpty() {
		t.Fatalf("Resolve(nil) = %v, want empty", set.Paths())
	}
}

func TestResolveDetectsCycle(t *testing.T) {
	a := environ.NewHandle("a", nil)
	b := environ.NewHandle("b", a)
	a.Reparent(b)

	_, err := NewIndex().Resolve(b)
	var cyc *CycleError
	if !errors.As(err, &cyc) {
		t.Fatalf("Resolve() error = %v, want CycleError", err)
	}
	want := "environment hierarchy contains a cycle: b -> a -> b"
	if cyc.Error() != want {
		t.Fatalf("Error() = %q, want %q", cyc.Error(), want)
	}
}
