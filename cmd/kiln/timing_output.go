package main

import (
	"fmt"
	"io"
	"time"

	"kiln/internal/pipeline"
)

func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	if timings.Has(pipeline.StageResolve) {
		fmt.Fprintf(out, "  resolved %.1f ms\n", toMillis(timings.Duration(pipeline.StageResolve)))
	}
	if timings.Has(pipeline.StageCompile) {
		fmt.Fprintf(out, "  compiled %.1f ms\n", toMillis(timings.Duration(pipeline.StageCompile)))
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
