package simulation

import (
	"errors"
	"fmt"
)

// Simulation errors.
var (
	// ErrInvalidParameter is returned when a simulation parameter violates its precondition.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNumericOverflow is returned when the balance leaves the supported range.
	ErrNumericOverflow = errors.New("numeric overflow")
)

// ParamError identifies the offending parameter field.
type ParamError struct {
	Field  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidParameter, e.Field, e.Reason)
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParameter
}

func invalid(field, reason string) error {
	return &ParamError{Field: field, Reason: reason}
}
