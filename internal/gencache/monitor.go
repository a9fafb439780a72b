package gencache

// Monitor receives generation progress for one artifact. Advance may be
// called from the generator's goroutine; Release is guaranteed to run on
// every exit path of a generation, successful or not.
type Monitor interface {
	// Advance reports that units more units of the declared total completed.
	Advance(units int)
	// Release frees the monitor.
	Release()
}

// MonitorFactory opens a monitor scoped to the artifact being generated.
type MonitorFactory func(target string, totalUnits int) Monitor

type nopMonitor struct{}

func (nopMonitor) Advance(int) {}
func (nopMonitor) Release()    {}

// NopMonitor returns a monitor that ignores all progress.
func NopMonitor() Monitor {
	return nopMonitor{}
}
