package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kiln/internal/gencache"
	"kiln/internal/project"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the generated artifact cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info [path]",
	Short: "Show cache location and contents",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheInfo,
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove every cached artifact",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClean,
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	manifest, err := cacheManifest(args)
	if err != nil {
		return err
	}
	cache, err := gencache.Open(manifest.Config.Cache.Dir, nil)
	if err != nil {
		return err
	}
	stats, err := cache.Stats()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "cache: %s\n", formatPathForOutput(manifest.Root, cache.Dir()))
	fmt.Fprintf(out, "artifacts: %d\n", stats.Artifacts)
	fmt.Fprintf(out, "size: %s\n", formatSize(stats.Bytes))
	return nil
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	manifest, err := cacheManifest(args)
	if err != nil {
		return err
	}
	dir := manifest.Config.Cache.Dir
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(cmd.OutOrStdout(), "cache directory not found")
			return nil
		}
		return fmt.Errorf("failed to stat %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %q: %w", dir, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", formatPathForOutput(manifest.Root, dir))
	return nil
}

func cacheManifest(args []string) (*project.Manifest, error) {
	startDir := "."
	if len(args) > 0 && args[0] != "" {
		startDir = args[0]
	}
	manifest, found, err := project.LoadFrom(startDir)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New(noKilnTomlMessage)
	}
	return manifest, nil
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
