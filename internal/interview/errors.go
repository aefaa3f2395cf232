package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is wrapped by every ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionComplete is returned when replying to a finished interview.
	ErrSessionComplete = errors.New("interview is already complete")
	// ErrConcurrentReply is returned when another reply advanced the session
	// while this one was being graded.
	ErrConcurrentReply = errors.New("session advanced by a concurrent reply")
)

// ValidationError rejects caller input before any state is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
