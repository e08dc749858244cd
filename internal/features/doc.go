// Package features reduces the raw per-frame output of the analysis engine
// into one flat, nullable record per track plus the event lists (chords,
// segments, tension points, transitions) stored alongside it.
//
// Reductions never invent values: when a series is too short or a
// denominator vanishes, the field is left nil.
package features
