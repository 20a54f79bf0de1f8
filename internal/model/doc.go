// Package model defines the domain types and value objects for volsynth.
//
// The package holds pure data structures: the run configuration, the grid
// dimensions, spheres and sphere sets, and the generated volume. It also
// defines exit codes (ExitCode) and a custom error type (CLIError) that
// carries exit codes for proper OS process exit handling.
package model
