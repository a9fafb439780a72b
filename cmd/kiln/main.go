package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kiln/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "kiln",
	Short: "Kiln script compiler front end",
	Long:  `Kiln compiles project scripts against layered classpaths and keeps generated artifacts in a persistent cache`,
}

// main registers subcommands and persistent flags, then executes the root
// command. A failed command exits with status code 1.
func main() {
	// Версия для автоматического флага --version
	rootCmd.Version = version.Version

	// Добавляем команды
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(classpathCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("log-level", "warn", "log verbosity (trace|debug|info|warn|error)")

	// Трассировка сборки
	rootCmd.PersistentFlags().String("trace", "", "write build trace events to the given file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace verbosity (off|run|script|stage|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "trace events kept in memory for the panic dump")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit trace liveness events at this interval (0 disables)")

	// Профилирование
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to the given file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to the given file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime execution trace to the given file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
