// Package services defines shared error markers and context helpers consumed
// by the analysis pipeline, calibration and CLI.
//
// Wrap tags failures with a sentinel (ErrDecode, ErrStorage, ...) plus stage
// and operation detail; IsFatal separates run-aborting storage failures from
// per-track failures. The context helpers stamp track IDs, stage names and run
// IDs so logging can pick them up.
package services
