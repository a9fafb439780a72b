// Package gencache produces derived artifacts at most once per key and keeps
// them on disk between runs.
package gencache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"kiln/internal/artifact"
	"kiln/internal/trace"
)

const tmpPrefix = ".tmp-"

// Generator produces one derived artifact.
type Generator struct {
	// TotalUnits declares how many units of work Write reports overall.
	TotalUnits int
	// Write populates the artifact at the temporary path dest. The file at
	// dest already exists and is empty. report forwards completed units to
	// the progress monitor.
	Write func(ctx context.Context, dest string, report func(units int)) error
}

// GenerateError wraps a failure inside a Generator. The key stays unresolved,
// so a later Obtain runs the generator again.
type GenerateError struct {
	Key string
	Err error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("failed to generate cached artifact %q: %v", e.Key, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// Cache hands out derived artifacts, generating each key at most once per
// instance.
//
// Generation is atomic: the generator writes to a temporary file inside the
// cache directory and the result is renamed into place only after it
// succeeds, so a concurrent reader never observes a half-written artifact.
// Concurrent Obtain calls for the same key share one generation; distinct
// keys generate in parallel.
type Cache struct {
	dir      string
	monitors MonitorFactory

	flight singleflight.Group

	mu       sync.Mutex
	resolved map[string]artifact.Artifact
}

// Open prepares a cache rooted at dir, creating the directory when missing
// and sweeping temporary files left behind by an interrupted run.
func Open(dir string, monitors MonitorFactory) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("missing cache directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	c := &Cache{
		dir:      dir,
		monitors: monitors,
		resolved: make(map[string]artifact.Artifact),
	}
	if err := c.sweepStaleTemp(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Obtain returns the artifact for key, generating it when no valid cached
// copy exists. gen runs at most once per key; a generation failure is
// reported to every waiting caller and nothing is cached for the key.
func (c *Cache) Obtain(ctx context.Context, key string, gen Generator) (artifact.Artifact, error) {
	if err := validateKey(key); err != nil {
		return artifact.Artifact{}, err
	}
	if a, ok := c.lookup(key); ok {
		return a, nil
	}
	v, err, _ := c.flight.Do(key, func() (any, error) {
		// Проигравшие гонку попадают сюда после победителя.
		if a, ok := c.lookup(key); ok {
			return a, nil
		}
		return c.produce(ctx, key, gen)
	})
	if err != nil {
		return artifact.Artifact{}, err
	}
	return v.(artifact.Artifact), nil
}

func validateKey(key string) error {
	switch {
	case key == "":
		return errors.New("missing cache key")
	case key != filepath.Base(key):
		return fmt.Errorf("cache key %q must not contain path separators", key)
	case strings.HasPrefix(key, tmpPrefix):
		return fmt.Errorf("cache key %q collides with the temp file prefix", key)
	case strings.ContainsRune(key, '*'):
		return fmt.Errorf("cache key %q must not contain wildcards", key)
	}
	return nil
}

func (c *Cache) lookup(key string) (artifact.Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.resolved[key]
	return a, ok
}

func (c *Cache) remember(key string, a artifact.Artifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolved[key] = a
}

func (c *Cache) produce(ctx context.Context, key string, gen Generator) (artifact.Artifact, error) {
	dest := filepath.Join(c.dir, key)
	tr := trace.FromContext(ctx)

	// Артефакт прошлого запуска переиспользуем, если sidecar сходится.
	if c.reusable(key, dest) {
		trace.Point(tr, trace.ScopeCache, "cache:"+key, "reuse")
		a := artifact.New(dest)
		c.remember(key, a)
		return a, nil
	}

	span := trace.Begin(tr, trace.ScopeCache, "cache:"+key, trace.CurrentSpan(ctx).SpanID)
	a, err := c.regenerate(ctx, key, dest, gen)
	if err != nil {
		span.End("error")
		return artifact.Artifact{}, err
	}
	span.End("generated")
	return a, nil
}

func (c *Cache) regenerate(ctx context.Context, key, dest string, gen Generator) (artifact.Artifact, error) {
	tmp, err := os.CreateTemp(c.dir, tmpPrefix+key+"-*")
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to create temp file for %q: %w", key, err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to close temp file for %q: %w", key, err)
	}

	if err := c.generate(ctx, key, dest, tmpPath, gen); err != nil {
		// Остатки подберёт sweep при следующем Open, если Remove не сработает.
		_ = os.Remove(tmpPath)
		return artifact.Artifact{}, err
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to stat generated artifact %q: %w", key, err)
	}
	// Атомарная замена
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return artifact.Artifact{}, fmt.Errorf("failed to move generated artifact %q into place: %w", key, err)
	}
	if err := c.writeMeta(key, info.Size()); err != nil {
		return artifact.Artifact{}, err
	}

	a := artifact.New(dest)
	c.remember(key, a)
	return a, nil
}

func (c *Cache) generate(ctx context.Context, key, dest, tmpPath string, gen Generator) error {
	if gen.Write == nil {
		return &GenerateError{Key: key, Err: errors.New("generator has no Write function")}
	}
	mon := c.monitor(dest, gen.TotalUnits)
	defer mon.Release()
	if err := gen.Write(ctx, tmpPath, mon.Advance); err != nil {
		return &GenerateError{Key: key, Err: err}
	}
	return nil
}

func (c *Cache) monitor(target string, totalUnits int) Monitor {
	if c.monitors == nil {
		return NopMonitor()
	}
	if m := c.monitors(target, totalUnits); m != nil {
		return m
	}
	return NopMonitor()
}

func (c *Cache) sweepStaleTemp() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove stale temp file %q: %w", e.Name(), err)
		}
	}
	return nil
}
