// Package config builds the run configuration of the generator.
//
// A configuration is assembled in three layers:
//   - Default returns the built-in defaults
//   - Load reads a YAML or JSON(C) file over those defaults
//   - Apply merges raw command-line values over the result
//
// Command-line values are parsed leniently: a malformed value keeps the
// previous layer's value and produces a warning instead of an error.
// Validate then rejects configurations the generator cannot run, such as
// an inverted radius interval or a zero-sized grid.
package config
