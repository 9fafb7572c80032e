package bus

import "goa.design/pulse/rmap"

// NewRmapAdapter wraps a live, already-joined *rmap.Map in a PulseAdapter.
// *rmap.Map satisfies Map structurally; this constructor exists only so
// callers wiring a real Pulse-backed deployment don't need to name the
// interface themselves.
func NewRmapAdapter(m *rmap.Map, prefix string) *PulseAdapter {
	return NewPulseAdapter(m, prefix)
}
