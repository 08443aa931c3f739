package config

import (
	"errors"
	"fmt"
)

// PreconditionError reports an unmet startup requirement: invalid usage,
// an unusable config, or an unreachable or incompatible job service.
// It always aborts the run before any job is processed.
type PreconditionError struct {
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// Precondition wraps err as a PreconditionError with a formatted reason.
func Precondition(err error, format string, args ...any) *PreconditionError {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// IsPrecondition reports whether err is or wraps a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
