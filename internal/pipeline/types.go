package pipeline

import "time"

// Stage describes a high-level phase of one script compilation.
type Stage string

const (
	// StageResolve is classpath resolution.
	StageResolve Stage = "resolve"
	// StageGenerate is derived artifact generation.
	StageGenerate Stage = "generate"
	// StageCompile is the external compiler run.
	StageCompile Stage = "compile"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the script is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the stage is currently running.
	StatusWorking Status = "working"
	// StatusDone indicates the stage finished cleanly.
	StatusDone Status = "done"
	// StatusError indicates the stage failed.
	StatusError Status = "error"
)

// Event reports progress for one script, or for a generated artifact when
// Stage is StageGenerate. Done and Total carry generation units; Total is
// zero otherwise.
type Event struct {
	Script  string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
	Done    int
	Total   int
}

// Timings holds stage durations for one script run.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
