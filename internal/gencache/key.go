package gencache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyFor derives a stable cache key for a named artifact from the content of
// its input files. The key changes when any input changes and is stable
// within and across runs, so derived artifacts regenerate exactly when their
// inputs do. The name's extension survives into the key:
// KeyFor("extensions.jar", ...) yields "extensions-<digest>.jar".
func KeyFor(name string, inputs ...string) (string, error) {
	if name == "" {
		return "", errors.New("missing artifact name")
	}
	h := sha256.New()
	_, _ = h.Write([]byte(name))
	for _, input := range inputs {
		// #nosec G304 -- входы перечислены в манифесте проекта
		content, err := os.ReadFile(input)
		if err != nil {
			return "", fmt.Errorf("failed to read cache key input %q: %w", input, err)
		}
		digest := sha256.Sum256(content)
		_, _ = h.Write([]byte(filepath.ToSlash(input)))
		_, _ = h.Write(digest[:])
	}
	sum := hex.EncodeToString(h.Sum(nil))[:16]
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return base + "-" + sum + ext, nil
}
