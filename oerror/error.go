package oerror

import "fmt"

// LocomotionError is the error type returned for misuse of the module's
// internal structures (codec, settings, queues).
type LocomotionError struct {
	Err string
}

// New formats an error message in the manner of fmt.Sprintf.
func New(format string, args ...any) *LocomotionError {
	if len(args) == 0 {
		return &LocomotionError{Err: format}
	}
	return &LocomotionError{Err: fmt.Sprintf(format, args...)}
}

func (e *LocomotionError) Error() string {
	return e.Err
}
