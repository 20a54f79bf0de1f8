package accel

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDriver is returned when a selector names a driver that was
	// never registered.
	ErrUnknownDriver = errors.New("unknown accelerator driver")

	// ErrNoPlatform is returned when the driver has no platform at the
	// selected index.
	ErrNoPlatform = errors.New("no accelerator platform")

	// ErrNoDevice is returned when the platform has no device at the
	// selected index.
	ErrNoDevice = errors.New("no accelerator device")

	// ErrInvalidSelector is returned by ParseSelector for malformed input.
	ErrInvalidSelector = errors.New("invalid device selector")

	// ErrInvalidTransition is returned when a run skips or repeats a stage.
	ErrInvalidTransition = errors.New("invalid backend state transition")
)

// InitError reports that no usable device could be set up for a selector.
// It is terminal for the accelerated backend; the scalar backend can still
// serve the job.
type InitError struct {
	// Selector is the device selector that failed, in canonical form.
	Selector string

	// Err is the underlying cause, typically one of the sentinels above or
	// a driver error.
	Err error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("accelerator %s unavailable: %v", e.Selector, e.Err)
}

// Unwrap returns the underlying cause for errors.Is / errors.As.
func (e *InitError) Unwrap() error {
	return e.Err
}

// IsInitError reports whether err is, or wraps, an *InitError.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}
