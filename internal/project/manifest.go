// Package project locates and parses the kiln.toml project manifest.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	// ErrProjectSectionMissing indicates that kiln.toml has no [project]
	// section.
	ErrProjectSectionMissing = errors.New("missing [project] section")
	// ErrCompilerCommandMissing indicates that [compiler].command is absent
	// or empty.
	ErrCompilerCommandMissing = errors.New("missing [compiler].command")
)

// Config mirrors kiln.toml.
type Config struct {
	Project    ProjectConfig    `toml:"project"`
	Compiler   CompilerConfig   `toml:"compiler"`
	Classpath  ClasspathConfig  `toml:"classpath"`
	Extensions ExtensionsConfig `toml:"extensions"`
	Cache      CacheConfig      `toml:"cache"`
}

// ProjectConfig is the [project] section.
type ProjectConfig struct {
	Name string `toml:"name"`
}

// CompilerConfig is the [compiler] section: how to invoke the external
// script compiler.
type CompilerConfig struct {
	Command   string   `toml:"command"`
	Args      []string `toml:"args"`
	SourceExt string   `toml:"source-ext"`
}

// ClasspathConfig is the [classpath] section. Base lists foundational
// artifacts every script compiles against; Layers lists environment layer
// directories from root to leaf.
type ClasspathConfig struct {
	Base   []string `toml:"base"`
	Layers []string `toml:"layers"`
}

// ExtensionsConfig is the [extensions] section: files bundled into the
// generated extensions archive.
type ExtensionsConfig struct {
	Include []string `toml:"include"`
}

// CacheConfig is the [cache] section.
type CacheConfig struct {
	Dir string `toml:"dir"`
}

// Manifest is a parsed kiln.toml plus where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Load parses the manifest at path and applies defaults. Relative paths in
// the manifest resolve against the manifest's directory.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}
	var cfg Config
	meta, err := toml.DecodeFile(abs, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("project") {
		return nil, fmt.Errorf("%s: %w", path, ErrProjectSectionMissing)
	}
	if strings.TrimSpace(cfg.Compiler.Command) == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrCompilerCommandMissing)
	}

	m := &Manifest{Path: abs, Root: filepath.Dir(abs), Config: cfg}
	m.applyDefaults()
	m.resolvePaths()
	return m, nil
}

// LoadFrom walks up from startDir to the nearest kiln.toml and loads it.
// found is false when no manifest exists on the way to the filesystem root.
func LoadFrom(startDir string) (m *Manifest, found bool, err error) {
	path, ok, err := FindKilnToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err = Load(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// FindKilnToml walks up from startDir looking for kiln.toml.
func FindKilnToml(startDir string) (path string, found bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "kiln.toml")
		switch _, err := os.Stat(candidate); {
		case err == nil:
			return candidate, true, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.Config.Project.Name == "" {
		m.Config.Project.Name = filepath.Base(m.Root)
	}
	if m.Config.Compiler.SourceExt == "" {
		m.Config.Compiler.SourceExt = ".kts"
	}
	if m.Config.Cache.Dir == "" {
		m.Config.Cache.Dir = filepath.Join(".kiln", "cache")
	}
}

// resolvePaths rebases relative manifest paths onto the project root so the
// engine can run from any working directory.
func (m *Manifest) resolvePaths() {
	m.Config.Cache.Dir = m.abs(m.Config.Cache.Dir)
	for i, p := range m.Config.Classpath.Base {
		m.Config.Classpath.Base[i] = m.abs(p)
	}
	for i, p := range m.Config.Classpath.Layers {
		m.Config.Classpath.Layers[i] = m.abs(p)
	}
	for i, p := range m.Config.Extensions.Include {
		m.Config.Extensions.Include[i] = m.abs(p)
	}
}

func (m *Manifest) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, p)
}
