// Package preflight provides readiness checks for the filesystem paths and
// external binaries setbreak depends on.
//
// These checks run in two contexts:
//   - The analyze command calls RunAll before starting a run. A failed
//     required check stops the run before any track is dispatched.
//   - The CLI "setbreak status" command shows every result, including the
//     optional ones.
package preflight
