// Package logging assembles structured slog loggers and formatting helpers used
// across setbreak.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context-aware helpers that tag log lines with track IDs, pipeline stages and
// run IDs. A no-op logger is provided for tests and wiring code that cannot
// fail.
package logging
