package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"kiln/internal/pipeline"
	"kiln/internal/ui"
)

// compileRun performs the actual work while the TUI owns the terminal,
// reporting progress through the sink.
type compileRun func(ctx context.Context, sink pipeline.ProgressSink) ([]scriptOutcome, error)

type compileOutcome struct {
	outcomes []scriptOutcome
	err      error
}

func runCompileWithUI(ctx context.Context, title string, displays []string, run compileRun) ([]scriptOutcome, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan compileOutcome, 1)

	go func() {
		outcomes, err := run(ctx, pipeline.ChannelSink{Ch: events})
		outcomeCh <- compileOutcome{outcomes: outcomes, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, displays, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.outcomes, uiErr
	}
	return outcome.outcomes, outcome.err
}
