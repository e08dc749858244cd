// Package pipeline runs the parallel analysis of pending tracks.
//
// A run derives the pending list from the store, splits it into chunks of
// workers x chunk_multiplier tracks and feeds each chunk to a fixed pool of
// workers. Every worker owns one engine session for the whole run and turns a
// track into an analysis run: decode, analyze, aggregate, score. When all
// tracks of a chunk have reported, the successes are committed in one
// transaction before the next chunk is dispatched.
//
// Per-track failures are logged, counted and leave the track pending for the
// next run. A storage failure aborts the run. Cancelling the context stops new
// chunks from starting; the chunk already in flight still completes and is
// committed, so an interrupted run loses nothing that was finished.
package pipeline
