package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"kiln/internal/artifact"
	"kiln/internal/classpath"
	"kiln/internal/diag"
	"kiln/internal/environ"
	"kiln/internal/gencache"
	"kiln/internal/pipeline"
	"kiln/internal/project"
	"kiln/internal/source"
)

const noKilnTomlMessage = "no kiln.toml found\nplease run inside a kiln project or pass its directory, e.g.:\n  kiln compile path/to/project"

// engine bundles everything a command needs to resolve and compile scripts
// for one project. The scope is locked at construction: the manifest fixes
// the whole layer hierarchy, so nothing is left to assemble afterwards.
type engine struct {
	manifest  *project.Manifest
	cache     *gencache.Cache
	scope     *environ.Scope
	resolver  *classpath.Resolver
	compiler  *pipeline.ExecCompiler
	translate diag.PathTranslator
}

func newEngine(manifest *project.Manifest, monitors gencache.MonitorFactory) (*engine, error) {
	if manifest == nil {
		return nil, fmt.Errorf("missing project manifest")
	}
	cache, err := gencache.Open(manifest.Config.Cache.Dir, monitors)
	if err != nil {
		return nil, err
	}

	scope := buildScope(manifest)
	scope.Lock()

	resolver := classpath.NewResolver(
		classpath.NewIndex(),
		baseProvider(manifest),
		generatedProvider(cache, manifest),
	)

	compiler := &pipeline.ExecCompiler{
		Command: manifest.Config.Compiler.Command,
		Args:    manifest.Config.Compiler.Args,
		Sources: source.NewFileSet(),
	}

	return &engine{
		manifest:  manifest,
		cache:     cache,
		scope:     scope,
		resolver:  resolver,
		compiler:  compiler,
		translate: pathTranslator(manifest.Root),
	}, nil
}

// buildScope assembles the project's compilation scope from the manifest
// layers. The root layer carries the base artifacts; every [classpath].layers
// directory stacks on top of it, and scripts see the last one.
func buildScope(manifest *project.Manifest) *environ.Scope {
	root := environ.NewHandle("base", nil, environ.PathSource(manifest.Config.Classpath.Base))
	local := root
	for _, dir := range manifest.Config.Classpath.Layers {
		local = environ.NewHandle(layerName(manifest.Root, dir), local, environ.DirSource(dir))
	}
	return environ.NewScope(manifest.Config.Project.Name, local, root)
}

func layerName(root, dir string) string {
	if rel, err := filepath.Rel(root, dir); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(dir)
}

// baseProvider supplies the foundational artifacts from [classpath].base.
func baseProvider(manifest *project.Manifest) classpath.Provider {
	base := manifest.Config.Classpath.Base
	if len(base) == 0 {
		return nil
	}
	return func(context.Context) (*artifact.Set, error) {
		return artifact.FromPaths(base...), nil
	}
}

// generatedProvider bundles the [extensions].include files into a cached
// archive and serves it as the generated part of every classpath. The cache
// key is content-addressed, so editing an included file produces a fresh
// archive while the stale one stays reusable for older checkouts.
func generatedProvider(cache *gencache.Cache, manifest *project.Manifest) classpath.Provider {
	include := manifest.Config.Extensions.Include
	if len(include) == 0 {
		return nil
	}
	return func(ctx context.Context) (*artifact.Set, error) {
		key, err := gencache.KeyFor("extensions.jar", include...)
		if err != nil {
			return nil, err
		}
		art, err := cache.Obtain(ctx, key, pipeline.ExtensionJar(include))
		if err != nil {
			return nil, err
		}
		return artifact.FromPaths(art.Path), nil
	}
}

// pathTranslator rewrites absolute paths under root into slash-separated
// relative ones so diagnostics read the same on every machine.
func pathTranslator(root string) diag.PathTranslator {
	return func(path string) string {
		if rel, err := filepath.Rel(root, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
		return path
	}
}

// collectScripts returns the sorted script files of the project, identified
// by [compiler].source-ext. Hidden directories and build output are skipped.
func collectScripts(manifest *project.Manifest) ([]string, error) {
	ext := manifest.Config.Compiler.SourceExt
	var scripts []string
	err := filepath.WalkDir(manifest.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if len(name) > 1 && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if name == "target" || name == "build" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			scripts = append(scripts, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Сортируем для детерминированного порядка
	sort.Strings(scripts)
	return scripts, nil
}

// resolveScriptArgs normalizes explicitly named scripts instead of scanning
// the project tree. Paths are made absolute, deduplicated and sorted; every
// one must exist and carry the project's script extension.
func resolveScriptArgs(args []string, ext string) ([]string, error) {
	scripts := make([]string, 0, len(args))
	seen := make(map[string]struct{}, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve script path %q: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("no such script: %s", arg)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory; pass one project directory or individual scripts", arg)
		}
		if !strings.EqualFold(filepath.Ext(abs), ext) {
			return nil, fmt.Errorf("%s is not a %s script", arg, ext)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		scripts = append(scripts, abs)
	}
	sort.Strings(scripts)
	return scripts, nil
}

// displayName normalizes one script path for terminal output: relative to the
// project root where possible, slash-separated.
func displayName(script, root string) string {
	path := filepath.Clean(script)
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}
	return filepath.ToSlash(path)
}

// displayScriptList normalizes script paths for terminal output,
// deduplicated and sorted.
func displayScriptList(scripts []string, root string) []string {
	if len(scripts) == 0 {
		return scripts
	}
	normalized := make([]string, 0, len(scripts))
	seen := make(map[string]struct{}, len(scripts))
	for _, script := range scripts {
		if script == "" {
			continue
		}
		path := displayName(script, root)
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		normalized = append(normalized, path)
	}
	sort.Strings(normalized)
	return normalized
}

// outputDirFor maps a script to its class output directory under outputRoot.
// The relative script path keeps directories apart, so equally named scripts
// in different folders never collide.
func outputDirFor(manifest *project.Manifest, outputRoot, script string) string {
	rel, err := filepath.Rel(manifest.Root, script)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(script)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	name := strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
	return filepath.Join(outputRoot, name)
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
