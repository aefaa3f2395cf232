package interview

import (
	"sync"
	"time"

	"github.com/spigell/hh-interviewer/internal/fingerprint"
)

// Session is the state of one interview. Only the orchestrator mutates it;
// Lock/Unlock guard a reply commit so readers never observe a half-applied turn.
type Session struct {
	ID                       string                `json:"id"`
	Candidate                Candidate             `json:"candidate"`
	Phase                    Phase                 `json:"phase"`
	Transcript               []TranscriptEntry     `json:"transcript"`
	TechnicalQuestionsAsked  int                   `json:"technical_questions_asked"`
	BehavioralQuestionsAsked int                   `json:"behavioral_questions_asked"`
	Registry                 *fingerprint.Registry `json:"registry"`
	DifficultyLevel          Level                 `json:"difficulty_level"`
	NextDifficulty           Adjustment            `json:"next_difficulty,omitempty"`
	Turn                     int                   `json:"turn"`
	Summary                  *Summary              `json:"summary,omitempty"`
	CreatedAt                time.Time             `json:"created_at"`
	UpdatedAt                time.Time             `json:"updated_at"`

	mu sync.Mutex
}

// Lock acquires the session for a state transition.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// IsComplete reports whether the session reached its terminal phase.
func (s *Session) IsComplete() bool {
	return s.Phase == PhaseComplete
}

// LastQuestion returns the most recent question and its transcript index.
func (s *Session) LastQuestion() (*Question, int) {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if e := s.Transcript[i]; e.Kind == EntryQuestion && e.Question != nil {
			return e.Question, i
		}
	}
	return nil, -1
}

// QuestionCount counts non-introduction questions.
func (s *Session) QuestionCount() int {
	n := 0
	for _, e := range s.Transcript {
		if e.Kind == EntryQuestion && e.Question != nil && e.Question.Stage != StageIntroduction {
			n++
		}
	}
	return n
}

// GradedAnswers returns answers carrying a verdict, in transcript order.
func (s *Session) GradedAnswers() []Answer {
	var out []Answer
	for _, e := range s.Transcript {
		if e.Kind == EntryAnswer && e.Answer != nil && e.Answer.Verdict != nil {
			out = append(out, *e.Answer)
		}
	}
	return out
}

// Snapshot returns a deep copy that is safe to persist or hand to callers.
func (s *Session) Snapshot() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone()
}

// SnapshotLocked is Snapshot for callers already holding the lock.
func (s *Session) SnapshotLocked() *Session {
	return s.clone()
}

func (s *Session) clone() *Session {
	out := &Session{
		ID:                       s.ID,
		Candidate:                s.Candidate,
		Phase:                    s.Phase,
		TechnicalQuestionsAsked:  s.TechnicalQuestionsAsked,
		BehavioralQuestionsAsked: s.BehavioralQuestionsAsked,
		Registry:                 s.Registry.Clone(),
		DifficultyLevel:          s.DifficultyLevel,
		NextDifficulty:           s.NextDifficulty,
		Turn:                     s.Turn,
		CreatedAt:                s.CreatedAt,
		UpdatedAt:                s.UpdatedAt,
	}

	out.Transcript = make([]TranscriptEntry, len(s.Transcript))
	for i, e := range s.Transcript {
		out.Transcript[i] = e.clone()
	}

	if s.Summary != nil {
		summary := s.Summary.Clone()
		out.Summary = &summary
	}

	return out
}
