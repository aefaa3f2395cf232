package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the provider answered without any text.
var ErrEmptyResponse = errors.New("ai provider returned empty response")

// Generator produces a single text completion for a system instruction and a
// user message. Implementations must be safe for concurrent use.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}
