package monitor

import "errors"

var (
	// ErrNotFound is returned for operations on an unknown monitor id.
	ErrNotFound = errors.New("monitor not found")

	// ErrInvalidState is returned for operations a DOWN monitor cannot perform.
	ErrInvalidState = errors.New("monitor has expired")
)

// ValidationError reports a malformed registration.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
