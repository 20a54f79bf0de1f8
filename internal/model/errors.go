package model

import "fmt"

// ExitCode defines the process exit codes of the volsynth CLI.
// Scripts generating test corpora can branch on these to tell a bad
// configuration apart from a missing accelerator or a full disk.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidConfig indicates the configuration was rejected before
	// any generation started (degenerate radius interval, zero dimension).
	ExitInvalidConfig ExitCode = 2

	// ExitAcceleratorUnavailable indicates no accelerator device could be
	// initialised and no fallback was requested.
	ExitAcceleratorUnavailable ExitCode = 3

	// ExitGenerationFailed indicates a backend failed after initialisation.
	ExitGenerationFailed ExitCode = 4

	// ExitOutputFailed indicates the generated arrays could not be written.
	ExitOutputFailed ExitCode = 5

	// ExitVerificationFailed indicates that stored output does not match
	// its manifest.
	ExitVerificationFailed ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
