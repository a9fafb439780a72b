package pipeline

import (
	"path/filepath"
	"sync"

	"kiln/internal/gencache"
)

// GenerationMonitor bridges artifact generation progress into the progress
// sink as StageGenerate events keyed by the artifact's base name.
func GenerationMonitor(sink ProgressSink) gencache.MonitorFactory {
	return func(target string, totalUnits int) gencache.Monitor {
		if sink == nil {
			return gencache.NopMonitor()
		}
		m := &generationMonitor{
			sink:   sink,
			target: filepath.Base(target),
			total:  totalUnits,
		}
		m.sink.OnEvent(Event{
			Script: m.target,
			Stage:  StageGenerate,
			Status: StatusWorking,
			Total:  m.total,
		})
		return m
	}
}

type generationMonitor struct {
	sink   ProgressSink
	target string
	total  int

	mu       sync.Mutex
	done     int
	released bool
}

func (m *generationMonitor) Advance(units int) {
	m.mu.Lock()
	m.done += units
	done := m.done
	m.mu.Unlock()
	m.sink.OnEvent(Event{
		Script: m.target,
		Stage:  StageGenerate,
		Status: StatusWorking,
		Done:   done,
		Total:  m.total,
	})
}

// Release emits the final done event once. A release before every declared
// unit completed means the generation failed; the failure path reports its
// own error, so an incomplete monitor stays silent.
func (m *generationMonitor) Release() {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return
	}
	m.released = true
	done := m.done
	m.mu.Unlock()

	if done < m.total {
		return
	}
	m.sink.OnEvent(Event{
		Script: m.target,
		Stage:  StageGenerate,
		Status: StatusDone,
		Done:   done,
		Total:  m.total,
	})
}
