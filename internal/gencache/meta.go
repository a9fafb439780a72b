package gencache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Bump when the sidecar layout changes; mismatched sidecars force a
// regeneration instead of a misread.
const metaSchemaVersion uint16 = 1

const metaSuffix = ".meta.mp"

// sidecarMeta records what was generated so later runs can reuse the artifact
// without rerunning its generator.
type sidecarMeta struct {
	Schema uint16
	Key    string
	Size   int64
}

func (c *Cache) metaPath(key string) string {
	return filepath.Join(c.dir, key+metaSuffix)
}

// writeMeta serializes sidecar metadata next to the artifact, atomically.
func (c *Cache) writeMeta(key string, size int64) error {
	f, err := os.CreateTemp(c.dir, tmpPrefix+key+"-meta-*")
	if err != nil {
		return fmt.Errorf("failed to create sidecar for %q: %w", key, err)
	}
	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(&sidecarMeta{Schema: metaSchemaVersion, Key: key, Size: size}); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to encode sidecar for %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to close sidecar for %q: %w", key, err)
	}
	if err := os.Rename(f.Name(), c.metaPath(key)); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("failed to move sidecar for %q into place: %w", key, err)
	}
	return nil
}

// reusable reports whether a prior run left a valid artifact for key: the
// artifact file exists and the sidecar agrees on schema, key, and size.
func (c *Cache) reusable(key, dest string) bool {
	info, err := os.Stat(dest)
	if err != nil || info.IsDir() {
		return false
	}
	f, err := os.Open(c.metaPath(key))
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	var meta sidecarMeta
	if err := msgpack.NewDecoder(f).Decode(&meta); err != nil {
		return false
	}
	return meta.Schema == metaSchemaVersion && meta.Key == key && meta.Size == info.Size()
}
