// Package environ models the layered environment hierarchy that scripts
// compile against. Each layer is immutable once constructed and sees the
// artifacts of all its ancestors.
package environ

import (
	"os"
	"path/filepath"
	"strings"
)

// Location points at one candidate artifact backing store. A location with an
// empty Path is not file-backed and contributes nothing to a classpath.
type Location struct {
	Path string
}

// IsFileBacked reports whether the location names a filesystem path.
func (l Location) IsFileBacked() bool {
	return l.Path != ""
}

// Source contributes candidate artifact locations to one environment layer.
type Source interface {
	Locations() []Location
}

// PathSource is a fixed list of filesystem paths used as a Source.
type PathSource []string

// Locations returns one file-backed location per path.
func (s PathSource) Locations() []Location {
	out := make([]Location, len(s))
	for i, p := range s {
		out[i] = Location{Path: p}
	}
	return out
}

// DirSource contributes the archives found directly in a directory, in name
// order. A missing or unreadable directory contributes nothing.
type DirSource string

// Locations lists the .jar and .zip files of the directory.
func (s DirSource) Locations() []Location {
	entries, err := os.ReadDir(string(s))
	if err != nil {
		// Каталог слоя может отсутствовать; тогда слой ничего не даёт.
		return nil
	}
	var out []Location
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jar", ".zip":
			out = append(out, Location{Path: filepath.Join(string(s), e.Name())})
		}
	}
	return out
}

// Handle is one layer of the environment hierarchy. Its own contribution is
// fixed at construction; the root layer has a nil parent.
type Handle struct {
	name    string
	parent  *Handle
	sources []Source
}

// NewHandle creates a layer with the given parent and artifact sources.
func NewHandle(name string, parent *Handle, sources ...Source) *Handle {
	return &Handle{name: name, parent: parent, sources: sources}
}

// Name returns the layer name.
func (h *Handle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

// Parent returns the parent layer, nil for a root.
func (h *Handle) Parent() *Handle {
	if h == nil {
		return nil
	}
	return h.parent
}

// Reparent redirects the layer to a new parent. Hierarchy builders may
// restructure layers while the owning scope is still unlocked; reparenting
// after resolution has started is a usage error.
func (h *Handle) Reparent(parent *Handle) {
	h.parent = parent
}

// Sources returns the layer's own artifact sources in order.
func (h *Handle) Sources() []Source {
	if h == nil {
		return nil
	}
	return h.sources
}
