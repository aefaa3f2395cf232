package evaluation

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed oracle sample.
type ErrorKind string

const (
	KindCall      ErrorKind = "call"
	KindTimeout   ErrorKind = "timeout"
	KindMalformed ErrorKind = "malformed"
)

var errNoObject = errors.New("no json object in oracle response")

// EvalError is returned for every oracle sample that cannot be used.
type EvalError struct {
	Kind ErrorKind
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Kind, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

func newEvalError(kind ErrorKind, err error) *EvalError {
	return &EvalError{Kind: kind, Err: err}
}
