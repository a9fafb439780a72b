package version

import "github.com/fatih/color"

// Build metadata for the kiln CLI. The values below describe a dev build;
// release builds override them via -ldflags.

var (
	majorColor = color.New(color.FgCyan, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgMagenta, color.Bold)

	// Version is the semantic version of the CLI.
	Version = colorize("0", "1", "0") + "-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

func colorize(major, minor, patch string) string {
	return majorColor.Sprint(major) + "." + minorColor.Sprint(minor) + "." + patchColor.Sprint(patch)
}
