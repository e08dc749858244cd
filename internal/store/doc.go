// Package store persists the track catalog, per-track analysis results and
// calibration history in SQLite.
//
// The schema is built from an ordered list of embedded migrations, each
// recorded in schema_migrations and skipped once applied. Analysis rows keep
// two copies of the jam scores: the raw formula output and the effective
// scores, which calibration overwrites. Only UpdateScores writes the effective
// columns, so recalibration always starts from the same raw values.
//
// All writes that span several rows run in one transaction. Errors are wrapped
// with services.ErrStorage, which callers treat as fatal.
package store
