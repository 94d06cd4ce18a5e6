package store

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrSlotConflict = errors.New("the selected time slot is already taken")
	ErrStaffBlocked = fmt.Errorf("%w: staff member is blocked at that time", ErrSlotConflict)
	ErrNotFound     = errors.New("appointment not found")
)

// ValidationError names the offending field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
