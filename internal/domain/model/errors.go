package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is the kind matched by every InvalidInputError.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a caller contract violation, such as a non-finite number.
type InvalidInputError struct {
	Op     string
	Field  string
	Reason string
}

// Invalid builds an InvalidInputError.
func Invalid(op, field, reason string) error {
	return &InvalidInputError{Op: op, Field: field, Reason: reason}
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Op, e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidInput) match.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// RequireFinite returns an InvalidInputError when v is NaN or infinite.
func RequireFinite(op, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid(op, field, "must be finite")
	}
	return nil
}
