// Package catalog walks music directories and records every supported audio
// file as a track.
//
// Metadata comes from two places. The path is parsed with a cascade of taper
// naming conventions (compact archive.org names such as gd1977-05-08d1t01,
// "YYYY-MM-DD Venue" show folders, "Set II" folders, "d1t03 - Title" and
// "03 - Title" file names) and embedded tags fill whatever the path left
// blank. Band codes resolve through a registry of built-in abbreviations
// extended by the [[bands]] config section.
//
// Unchanged files (same size and modification time) are skipped unless the
// scan is forced. A changed content fingerprint drops the track's analysis so
// the next analyze run picks it up again.
package catalog
