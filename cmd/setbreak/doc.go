// Package main hosts the setbreak CLI.
//
// The Cobra command tree maps terminal invocations onto the internal
// packages: scan catalogs a music library, analyze runs the parallel feature
// pipeline, calibrate and rescore rewrite scores, stats, top, show and status
// read the database back, and logs replays the JSON log. Configuration is
// resolved once per invocation and passed down; commands that write take the
// database lock.
package main
