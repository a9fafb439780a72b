package pipeline

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"kiln/internal/gencache"
)

// ExtensionJar returns a generator that bundles the given files into a single
// archive, reporting one unit of progress per file. Entries keep manifest
// order, so the same inputs produce the same archive layout.
func ExtensionJar(include []string) gencache.Generator {
	return gencache.Generator{
		TotalUnits: len(include),
		Write: func(_ context.Context, dest string, report func(int)) error {
			f, err := os.Create(dest)
			if err != nil {
				return fmt.Errorf("failed to open archive %q: %w", dest, err)
			}
			zw := zip.NewWriter(f)
			for _, path := range include {
				if err := addArchiveEntry(zw, path); err != nil {
					_ = zw.Close()
					_ = f.Close()
					return err
				}
				report(1)
			}
			if err := zw.Close(); err != nil {
				_ = f.Close()
				return fmt.Errorf("failed to finalize archive %q: %w", dest, err)
			}
			return f.Close()
		},
	}
}

func addArchiveEntry(zw *zip.Writer, path string) error {
	// #nosec G304 -- включаемые файлы перечислены в манифесте проекта
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read archive input %q: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to add archive entry %q: %w", path, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to write archive entry %q: %w", path, err)
	}
	return nil
}
