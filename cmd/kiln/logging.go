package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kiln/internal/ctxlog"
)

// setupLogging reads the root logging flags, attaches a logger to the command
// context and applies the color mode. Subcommands call it before doing real
// work so the whole engine logs through the same handler.
func setupLogging(cmd *cobra.Command) error {
	root := cmd.Root()

	levelStr, err := root.PersistentFlags().GetString("log-level")
	if err != nil {
		return fmt.Errorf("failed to get log-level flag: %w", err)
	}
	quiet, err := root.PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	colorMode, err := root.PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}

	if err := applyColorMode(colorMode); err != nil {
		return err
	}

	level, err := parseLogLevel(levelStr)
	if err != nil {
		return err
	}
	if quiet && level < slog.LevelError {
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	ctx := ctxlog.WithLogger(cmd.Context(), slog.New(handler))
	cmd.SetContext(ctx)
	return nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "trace":
		return ctxlog.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid --log-level value %q (expected trace|debug|info|warn|error)", value)
	}
}

func applyColorMode(value string) error {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		// fatih/color сам определяет терминал
		return nil
	case "on":
		color.NoColor = false
		return nil
	case "off":
		color.NoColor = true
		return nil
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}
