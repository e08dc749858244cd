// Package config loads, normalizes, and validates setbreak configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SETBREAK_DB and SETBREAK_FFMPEG. The Config value is built once by the CLI
// and handed to every constructor; nothing in the module reads configuration
// from package-level state.
package config
