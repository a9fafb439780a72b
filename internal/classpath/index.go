// Package classpath computes the artifacts visible to script compilation
// scopes over a layered environment hierarchy.
package classpath

import (
	"fmt"
	"strings"
	"sync"

	"kiln/internal/artifact"
	"kiln/internal/environ"
)

// CycleError reports an environment layer whose ancestor chain loops back on
// itself.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("environment hierarchy contains a cycle: %s", strings.Join(e.Chain, " -> "))
}

// Index memoizes the resolved artifact set of every environment layer it has
// seen. Safe for concurrent use: each layer is resolved at most once, and
// repeated queries return the already computed set.
type Index struct {
	mu      sync.Mutex
	entries map[*environ.Handle]*indexEntry
}

// indexEntry holds one layer's resolution. Только успешный результат
// запоминается; после ошибки следующий Resolve начнёт заново.
type indexEntry struct {
	mu   sync.Mutex
	done bool
	set  *artifact.Set
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[*environ.Handle]*indexEntry)}
}

// Resolve returns the artifacts visible from the layer: its own file-backed
// locations first, then everything inherited from its ancestors. Duplicate
// paths keep their first (most local) position. A nil layer resolves to the
// empty set.
//
// Resolution ascends the parent chain, so locking a child entry before its
// parent never reverses anywhere in the hierarchy.
func (ix *Index) Resolve(h *environ.Handle) (*artifact.Set, error) {
	if h == nil {
		return artifact.NewSet(), nil
	}
	e := ix.entry(h)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return e.set, nil
	}
	if err := checkAncestry(h); err != nil {
		return nil, err
	}
	inherited, err := ix.Resolve(h.Parent())
	if err != nil {
		return nil, err
	}
	set := ownArtifacts(h).Union(inherited)
	e.set = set
	e.done = true
	return set, nil
}

func (ix *Index) entry(h *environ.Handle) *indexEntry {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	e, ok := ix.entries[h]
	if !ok {
		e = &indexEntry{}
		ix.entries[h] = e
	}
	return e
}

// ownArtifacts materializes the layer's own file-backed locations in source
// order.
func ownArtifacts(h *environ.Handle) *artifact.Set {
	set := artifact.NewSet()
	for _, src := range h.Sources() {
		for _, loc := range src.Locations() {
			// Не файловые источники в classpath не попадают.
			if !loc.IsFileBacked() {
				continue
			}
			set.AddPath(loc.Path)
		}
	}
	return set
}

// checkAncestry fails fast when the parent chain loops, before any recursive
// resolution could deadlock on it.
func checkAncestry(h *environ.Handle) error {
	seen := make(map[*environ.Handle]struct{})
	var chain []string
	for cur := h; cur != nil; cur = cur.Parent() {
		chain = append(chain, cur.Name())
		if _, dup := seen[cur]; dup {
			return &CycleError{Chain: chain}
		}
		seen[cur] = struct{}{}
	}
	return nil
}
