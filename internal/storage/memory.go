package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/spigell/hh-interviewer/internal/interview"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Record
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Record),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, candidate interview.Candidate, state *interview.Session) (string, error) {
	if state == nil {
		return "", errors.New("session state is required")
	}

	id := uuid.NewString()
	ts := now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = &Record{
		ID:             id,
		Candidate:      candidate,
		Status:         StatusInProgress,
		TotalQuestions: state.QuestionCount(),
		State:          withID(state, id),
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}

	return id, nil
}

func (s *MemoryStore) UpdateSession(_ context.Context, id string, state *interview.Session, status Status) error {
	if id == "" {
		return errors.New("session id is required")
	}
	if state == nil {
		return errors.New("session state is required")
	}

	ts := now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		rec = &Record{ID: id, CreatedAt: ts}
		s.sessions[id] = rec
	}

	rec.Candidate = state.Candidate
	rec.Status = status
	rec.TotalQuestions = state.QuestionCount()
	rec.State = withID(state, id)
	rec.UpdatedAt = ts

	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	return copyRecord(rec), nil
}

func (s *MemoryStore) ListSessions(_ context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Record, 0, len(s.sessions))
	for _, rec := range s.sessions {
		result = append(result, copyRecord(rec))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (s *MemoryStore) Close() error { return nil }

func withID(state *interview.Session, id string) *interview.Session {
	snap := state.Snapshot()
	snap.ID = id
	return snap
}

func copyRecord(rec *Record) *Record {
	out := *rec
	if rec.State != nil {
		out.State = rec.State.Snapshot()
	}
	return &out
}
