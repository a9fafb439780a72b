package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kiln/internal/prof"
)

// setupProfiling inspects persistent profiling flags and starts the selected
// profilers. It returns a cleanup function that is safe to call multiple
// times.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	cpuProfile, err := root.PersistentFlags().GetString("cpu-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	memProfile, err := root.PersistentFlags().GetString("mem-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	tracePath, err := root.PersistentFlags().GetString("runtime-trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}

	session, err := prof.Start(prof.Options{
		CPUPath:   cpuProfile,
		MemPath:   memProfile,
		TracePath: tracePath,
	})
	if err != nil {
		return nil, err
	}

	cleanup := func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "prof: %v\n", err)
		}
	}

	return cleanup, nil
}
