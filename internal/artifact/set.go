package artifact

import (
	"os"
	"strings"
)

// Set is an ordered sequence of artifacts deduplicated by path. Order is
// classpath precedence: when the same path is added twice, the first
// occurrence wins and keeps its position.
type Set struct {
	items []Artifact
	index map[string]struct{}
}

// NewSet builds a set from the given artifacts, in order.
func NewSet(items ...Artifact) *Set {
	s := &Set{
		items: make([]Artifact, 0, len(items)),
		index: make(map[string]struct{}, len(items)),
	}
	for _, a := range items {
		s.Add(a)
	}
	return s
}

// FromPaths builds a set from the given paths, in order.
func FromPaths(paths ...string) *Set {
	s := NewSet()
	for _, p := range paths {
		s.AddPath(p)
	}
	return s
}

// Add appends the artifact unless its path is already present.
// Возвращает false, если путь уже был в наборе.
func (s *Set) Add(a Artifact) bool {
	if _, dup := s.index[a.Path]; dup {
		return false
	}
	s.items = append(s.items, a)
	s.index[a.Path] = struct{}{}
	return true
}

// AddPath appends an artifact for path unless it is already present.
func (s *Set) AddPath(path string) bool {
	return s.Add(Artifact{Path: path})
}

// Items returns the artifacts in order.
// ВАЖНО: не модифицируйте возвращаемый срез (он указывает на внутренний массив).
func (s *Set) Items() []Artifact {
	if s == nil {
		return nil
	}
	return s.items
}

// Paths returns the artifact paths in order.
func (s *Set) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.items))
	for i, a := range s.items {
		out[i] = a.Path
	}
	return out
}

// Contains reports whether an artifact with the given path is present.
func (s *Set) Contains(path string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[path]
	return ok
}

// Len returns the number of artifacts in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// IsEmpty reports whether the set has no artifacts.
func (s *Set) IsEmpty() bool {
	return s.Len() == 0
}

// Union returns a new set holding the receiver's artifacts followed by every
// artifact from others whose path is not present yet.
func (s *Set) Union(others ...*Set) *Set {
	out := NewSet()
	if s != nil {
		for _, a := range s.items {
			out.Add(a)
		}
	}
	for _, other := range others {
		if other == nil {
			continue
		}
		for _, a := range other.items {
			out.Add(a)
		}
	}
	return out
}

// Subtract returns a new set with the receiver's artifacts whose paths are
// not present in other, preserving the receiver's order.
func (s *Set) Subtract(other *Set) *Set {
	out := NewSet()
	if s == nil {
		return out
	}
	for _, a := range s.items {
		if other.Contains(a.Path) {
			continue
		}
		out.Add(a)
	}
	return out
}

// JoinPaths renders the set as a single classpath string with entries
// separated by the platform list separator.
func (s *Set) JoinPaths() string {
	return strings.Join(s.Paths(), string(os.PathListSeparator))
}
