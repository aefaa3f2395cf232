// Package storage persists interview sessions. The orchestrator treats every
// error from a Store as non-fatal.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/hh-interviewer/internal/interview"
)

// Status is the lifecycle marker of a stored session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Record is a stored session.
type Record struct {
	ID             string              `json:"id"`
	Candidate      interview.Candidate `json:"candidate"`
	Status         Status              `json:"status"`
	TotalQuestions int                 `json:"total_questions"`
	State          *interview.Session  `json:"state"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Store is the persistence boundary consumed by the orchestrator.
type Store interface {
	// CreateSession stores the initial state and returns the new session id.
	CreateSession(ctx context.Context, candidate interview.Candidate, state *interview.Session) (string, error)
	// UpdateSession writes the latest state. Unknown ids are inserted so a
	// session whose creation failed can still be saved later.
	UpdateSession(ctx context.Context, id string, state *interview.Session, status Status) error
	GetSession(ctx context.Context, id string) (*Record, error)
	ListSessions(ctx context.Context, limit int) ([]*Record, error)
	Close() error
}

// StatusOf derives the stored status from the session phase.
func StatusOf(s *interview.Session) Status {
	if s != nil && s.IsComplete() {
		return StatusCompleted
	}
	return StatusInProgress
}

var now = func() time.Time { return time.Now().UTC() }
