// Package logs reads back the JSON log that every setbreak command appends to
// log_dir/setbreak.log.
//
// Entries can be filtered by run, track, component, event type and minimum
// level, so an interrupted analysis can be reconstructed from its
// chunk_committed and track_failed events. Reads keep bounded memory: the
// last N matches are held in a ring, and Follow polls from a byte offset.
package logs
