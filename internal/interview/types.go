package interview

import "time"

// Phase is the stage of the interview state machine.
type Phase string

const (
	PhaseIntroduction Phase = "introduction"
	PhaseTechnical    Phase = "technical"
	PhaseBehavioral   Phase = "behavioral"
	PhaseComplete     Phase = "complete"
)

// Stage tags the kind of question that was asked.
type Stage string

const (
	StageIntroduction Stage = "introduction"
	StageTechnical    Stage = "technical"
	StageBehavioral   Stage = "behavioral"
)

// Level is a difficulty tier.
type Level string

const (
	LevelBasic        Level = "basic"
	LevelIntermediate Level = "intermediate"
	LevelExpert       Level = "expert"
)

var levelOrder = []Level{LevelBasic, LevelIntermediate, LevelExpert}

// LevelForExperience maps years of experience to a tier:
// below 3 years basic, below 7 intermediate, otherwise expert.
func LevelForExperience(years float64) Level {
	switch {
	case years < 3:
		return LevelBasic
	case years < 7:
		return LevelIntermediate
	default:
		return LevelExpert
	}
}

// Shift moves the level one tier in the direction of the adjustment, clamped
// to the tier range.
func (l Level) Shift(adj Adjustment) Level {
	idx := 0
	for i, lvl := range levelOrder {
		if lvl == l {
			idx = i
		}
	}

	switch adj {
	case AdjustHarder:
		idx++
	case AdjustEasier:
		idx--
	}

	idx = max(0, min(idx, len(levelOrder)-1))
	return levelOrder[idx]
}

// Adjustment is the advisory difficulty label produced after a technical verdict.
type Adjustment string

const (
	AdjustHarder Adjustment = "harder"
	AdjustEasier Adjustment = "easier"
	AdjustSame   Adjustment = "same"
)

// NextDifficulty derives the adjustment from a correctness score.
func NextDifficulty(correctness int) Adjustment {
	switch {
	case correctness >= 80:
		return AdjustHarder
	case correctness <= 50:
		return AdjustEasier
	default:
		return AdjustSame
	}
}

// Candidate describes the person being interviewed.
type Candidate struct {
	Name            string  `json:"name"`
	Email           string  `json:"email,omitempty"`
	JobTitle        string  `json:"job_title"`
	RoleKey         string  `json:"role_key"`
	ExperienceYears float64 `json:"experience_years"`
	Tier            Level   `json:"tier"`
}

// Validate checks the fields required to start an interview.
func (c Candidate) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "candidate name is required"}
	}
	if c.JobTitle == "" {
		return &ValidationError{Field: "job_title", Message: "job title is required"}
	}
	if c.ExperienceYears < 0 {
		return &ValidationError{Field: "experience_years", Message: "experience must not be negative"}
	}
	return nil
}

// Rubric guides grading of a single question.
type Rubric struct {
	ExpectedPoints []string `json:"expected_points" yaml:"expected_points"`
	Keywords       []string `json:"keywords" yaml:"keywords"`
	CommonMistakes []string `json:"common_mistakes" yaml:"common_mistakes"`
}

// IsZero reports whether the rubric carries no guidance.
func (r Rubric) IsZero() bool {
	return len(r.ExpectedPoints) == 0 && len(r.Keywords) == 0 && len(r.CommonMistakes) == 0
}

// Clone returns a deep copy.
func (r Rubric) Clone() Rubric {
	return Rubric{
		ExpectedPoints: append([]string(nil), r.ExpectedPoints...),
		Keywords:       append([]string(nil), r.Keywords...),
		CommonMistakes: append([]string(nil), r.CommonMistakes...),
	}
}

// Question is an assistant turn.
type Question struct {
	Text         string    `json:"text"`
	Stage        Stage     `json:"stage"`
	SkillFocus   string    `json:"skill_focus"`
	TimeLimitSec float64   `json:"time_limit_sec"`
	Rubric       Rubric    `json:"rubric"`
	Difficulty   Level     `json:"difficulty,omitempty"`
	AskedAt      time.Time `json:"asked_at"`
}

// Answer is a candidate turn.
type Answer struct {
	Text          string    `json:"text"`
	TimeTakenSec  float64   `json:"time_taken_sec"`
	QuestionIndex int       `json:"question_index"`
	Stage         Stage     `json:"stage"`
	SkillFocus    string    `json:"skill_focus"`
	Verdict       *Verdict  `json:"verdict,omitempty"`
	AnsweredAt    time.Time `json:"answered_at"`
}

// EntryKind discriminates transcript entries.
type EntryKind string

const (
	EntryQuestion EntryKind = "question"
	EntryAnswer   EntryKind = "answer"
)

// TranscriptEntry holds exactly one of Question or Answer, according to Kind.
type TranscriptEntry struct {
	Kind     EntryKind `json:"kind"`
	Question *Question `json:"question,omitempty"`
	Answer   *Answer   `json:"answer,omitempty"`
}

// QuestionEntry wraps a question for the transcript.
func QuestionEntry(q Question) TranscriptEntry {
	return TranscriptEntry{Kind: EntryQuestion, Question: &q}
}

// AnswerEntry wraps an answer for the transcript.
func AnswerEntry(a Answer) TranscriptEntry {
	return TranscriptEntry{Kind: EntryAnswer, Answer: &a}
}

func (e TranscriptEntry) clone() TranscriptEntry {
	out := TranscriptEntry{Kind: e.Kind}
	if e.Question != nil {
		q := *e.Question
		q.Rubric = e.Question.Rubric.Clone()
		out.Question = &q
	}
	if e.Answer != nil {
		a := *e.Answer
		if e.Answer.Verdict != nil {
			v := e.Answer.Verdict.Clone()
			a.Verdict = &v
		}
		out.Answer = &a
	}
	return out
}
