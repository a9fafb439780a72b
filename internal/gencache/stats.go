package gencache

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Stats summarizes the finished artifacts in a cache directory.
type Stats struct {
	Artifacts int
	Bytes     int64
}

// Stats counts the cached artifacts and their total size. Sidecar metadata
// and in-flight temp files are not artifacts and are left out.
func (c *Cache) Stats() (Stats, error) {
	var st Stats
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return st, fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, tmpPrefix) || strings.HasSuffix(name, metaSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return st, fmt.Errorf("failed to stat %q: %w", name, err)
		}
		st.Artifacts++
		st.Bytes += info.Size()
	}
	return st, nil
}
