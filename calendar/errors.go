package calendar

import (
	"errors"
	"fmt"
)

// ErrInvalidCalendarInput is returned for malformed calendar requests such as
// a zeroth weekday, an occurrence past the end of the month, or quarter 5.
// It is a contract violation by the caller, not a runtime condition.
var ErrInvalidCalendarInput = errors.New("invalid calendar input")

// InputError carries the operation and reason behind ErrInvalidCalendarInput.
type InputError struct {
	Op     string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidCalendarInput, e.Op, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidCalendarInput
}

func invalid(op, format string, args ...any) error {
	return &InputError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
