package features

import "setbreak/internal/engine"

// Details carries the per-track event lists persisted next to the Record.
type Details struct {
	Chords      []engine.Chord
	Segments    []engine.Segment
	Tension     []engine.TensionPoint
	Transitions []engine.Transition
}
