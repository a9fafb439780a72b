package trace

// Nop is the tracer installed when tracing is off. Every method is a no-op,
// so call sites can emit unconditionally without checking a flag first.
var Nop Tracer = nopTracer{}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }
