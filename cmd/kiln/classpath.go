package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kiln/internal/project"
)

var classpathCmd = &cobra.Command{
	Use:   "classpath [flags] [path]",
	Short: "Print the resolved script classpath",
	Long:  "Resolve the classpath scripts compile against and print it, one artifact per line. Generated artifacts are produced on demand.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  classpathExecution,
}

func init() {
	classpathCmd.Flags().Bool("join", false, "print one OS path-list line instead of one artifact per line")
}

func classpathExecution(cmd *cobra.Command, args []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}
	join, err := cmd.Flags().GetBool("join")
	if err != nil {
		return err
	}

	startDir := "."
	if len(args) > 0 && args[0] != "" {
		startDir = args[0]
	}
	manifest, found, err := project.LoadFrom(startDir)
	if err != nil {
		return err
	}
	if !found {
		return errors.New(noKilnTomlMessage)
	}

	eng, err := newEngine(manifest, nil)
	if err != nil {
		return err
	}
	set, err := eng.resolver.ClasspathFor(cmd.Context(), eng.scope)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if join {
		fmt.Fprintln(out, set.JoinPaths())
		return nil
	}
	for _, a := range set.Items() {
		fmt.Fprintln(out, a.Path)
	}
	return nil
}
