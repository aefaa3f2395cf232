// Package orchestrator drives an interview session from the introduction
// through the technical and behavioral rounds to a scored summary.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/catalog"
	"github.com/spigell/hh-interviewer/internal/evaluation"
	"github.com/spigell/hh-interviewer/internal/fingerprint"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/rollup"
	"github.com/spigell/hh-interviewer/internal/storage"
)

const (
	TechnicalQuestions  = 4
	BehavioralQuestions = 2

	introductionSkill = "Introduction"
)

// Grader scores one answer. It never fails; degraded grading is reported
// through the verdict markers.
type Grader interface {
	Evaluate(ctx context.Context, in evaluation.Input) interview.Verdict
}

// SessionStore is the part of storage.Store the orchestrator writes to.
type SessionStore interface {
	CreateSession(ctx context.Context, candidate interview.Candidate, state *interview.Session) (string, error)
	UpdateSession(ctx context.Context, id string, state *interview.Session, status storage.Status) error
}

// Observer receives session lifecycle telemetry.
type Observer interface {
	SessionStarted()
	PhaseTransition(from, to interview.Phase)
	SessionCompleted(summary interview.Summary)
	FallbackQuestion()
	StoreError(op string)
}

// Deps wires an Orchestrator. Store and Observer are optional.
type Deps struct {
	Catalog  *catalog.Catalog
	Grader   Grader
	Store    SessionStore
	Observer Observer
	Logger   *zap.Logger
	Now      func() time.Time
}

// StartResult is the outcome of Start.
type StartResult struct {
	Session  *interview.Session
	Question interview.Question
}

// ReplyResult is the outcome of Reply. Session is a snapshot taken at commit.
// Exactly one of NextQuestion or Summary is set.
type ReplyResult struct {
	Session      *interview.Session
	NextQuestion *interview.Question
	Completed    bool
	Summary      *interview.Summary
}

// Orchestrator is safe for concurrent use across sessions.
type Orchestrator struct {
	catalog  *catalog.Catalog
	grader   Grader
	store    SessionStore
	observer Observer
	logger   *zap.Logger
	now      func() time.Time
}

// New validates deps and builds an Orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if deps.Grader == nil {
		return nil, errors.New("grader is required")
	}

	o := &Orchestrator{
		catalog:  deps.Catalog,
		grader:   deps.Grader,
		store:    deps.Store,
		observer: deps.Observer,
		logger:   deps.Logger,
		now:      deps.Now,
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}

	return o, nil
}

// Start validates the candidate and opens a session with the introduction
// question.
func (o *Orchestrator) Start(ctx context.Context, candidate interview.Candidate) (*StartResult, error) {
	candidate.Name = strings.TrimSpace(candidate.Name)
	candidate.Email = strings.TrimSpace(candidate.Email)
	candidate.JobTitle = strings.TrimSpace(candidate.JobTitle)
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	candidate.RoleKey = o.catalog.RoleKey(candidate.JobTitle)
	candidate.Tier = interview.LevelForExperience(candidate.ExperienceYears)

	now := o.now()
	question := interview.Question{
		Text:         o.catalog.Introduction(candidate.Name, candidate.JobTitle),
		Stage:        interview.StageIntroduction,
		SkillFocus:   introductionSkill,
		TimeLimitSec: catalog.TimeLimit(interview.StageIntroduction, candidate.Tier),
		AskedAt:      now,
	}

	registry := fingerprint.NewRegistry()
	registry.Register(question.Text)

	session := &interview.Session{
		Candidate:       candidate,
		Phase:           interview.PhaseIntroduction,
		Transcript:      []interview.TranscriptEntry{interview.QuestionEntry(question)},
		Registry:        registry,
		DifficultyLevel: candidate.Tier,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	session.ID = o.create(ctx, session)

	log := logger.WithSessionFields(o.logger, session.ID, string(session.Phase), candidate.RoleKey)
	log.Info("interview started",
		zap.String("job_title", candidate.JobTitle),
		zap.String("tier", string(candidate.Tier)),
	)
	o.observer.SessionStarted()

	return &StartResult{Session: session, Question: question}, nil
}

func (o *Orchestrator) create(ctx context.Context, session *interview.Session) string {
	if o.store == nil {
		return uuid.NewString()
	}

	id, err := o.store.CreateSession(ctx, session.Candidate, session.SnapshotLocked())
	if err != nil || id == "" {
		o.logger.Error("failed to create session record, continuing with a local id", zap.Error(err))
		o.observer.StoreError("create")
		return uuid.NewString()
	}
	return id
}

// Reply grades the answer to the open question and advances the session.
// Input errors are returned before any state changes; oracle and storage
// failures never surface as errors.
func (o *Orchestrator) Reply(ctx context.Context, session *interview.Session, answer string, timeTakenSec float64) (*ReplyResult, error) {
	if session == nil {
		return nil, &interview.ValidationError{Field: "session", Message: "session is required"}
	}
	text := strings.TrimSpace(answer)
	if text == "" {
		return nil, &interview.ValidationError{Field: "answer", Message: "answer must not be empty"}
	}
	if timeTakenSec < 0 {
		return nil, &interview.ValidationError{Field: "time_taken_sec", Message: "time taken must not be negative"}
	}

	question, turn, err := o.openQuestion(session)
	if err != nil {
		return nil, err
	}

	// Grading runs outside the session lock so snapshot readers are never
	// blocked behind oracle calls.
	var verdict *interview.Verdict
	if question.Stage != interview.StageIntroduction {
		v := o.grader.Evaluate(ctx, evaluation.Input{
			Answer:       text,
			Question:     question,
			TimeTakenSec: timeTakenSec,
		})
		verdict = &v
	}

	result, snapshot, from, err := o.commit(session, turn, text, timeTakenSec, verdict)
	if err != nil {
		return nil, err
	}

	log := logger.WithSessionFields(o.logger, snapshot.ID, string(snapshot.Phase), snapshot.Candidate.RoleKey)
	if from != snapshot.Phase {
		o.observer.PhaseTransition(from, snapshot.Phase)
		log.Info("interview phase changed", zap.String("from", string(from)))
	}
	if result.Completed {
		o.observer.SessionCompleted(*result.Summary)
		log.Info("interview completed",
			zap.Float64("overall_score", result.Summary.OverallScore),
			zap.Int("total_questions", result.Summary.TotalQuestions),
		)
	}

	o.persist(ctx, snapshot, log)

	return result, nil
}

func (o *Orchestrator) openQuestion(session *interview.Session) (interview.Question, int, error) {
	session.Lock()
	defer session.Unlock()

	if session.IsComplete() {
		return interview.Question{}, 0, interview.ErrSessionComplete
	}
	switch session.Phase {
	case interview.PhaseIntroduction, interview.PhaseTechnical, interview.PhaseBehavioral:
	default:
		return interview.Question{}, 0, &interview.ValidationError{Field: "phase", Message: fmt.Sprintf("unknown phase %q", session.Phase)}
	}

	question, idx := session.LastQuestion()
	if question == nil || idx != len(session.Transcript)-1 {
		return interview.Question{}, 0, &interview.ValidationError{Field: "session", Message: "session has no open question"}
	}

	q := *question
	q.Rubric = question.Rubric.Clone()
	return q, session.Turn, nil
}

// commit applies a graded turn under the session lock. Past the turn check
// nothing in it can fail.
func (o *Orchestrator) commit(session *interview.Session, turn int, text string, timeTakenSec float64, verdict *interview.Verdict) (*ReplyResult, *interview.Session, interview.Phase, error) {
	session.Lock()
	defer session.Unlock()

	if session.Turn != turn {
		return nil, nil, "", interview.ErrConcurrentReply
	}
	if session.IsComplete() {
		return nil, nil, "", interview.ErrSessionComplete
	}

	now := o.now()
	question, idx := session.LastQuestion()
	o.ensureRegistry(session)

	session.Transcript = append(session.Transcript, interview.AnswerEntry(interview.Answer{
		Text:          text,
		TimeTakenSec:  timeTakenSec,
		QuestionIndex: idx,
		Stage:         question.Stage,
		SkillFocus:    question.SkillFocus,
		Verdict:       verdict,
		AnsweredAt:    now,
	}))

	from := session.Phase
	var next *interview.Question

	switch session.Phase {
	case interview.PhaseIntroduction:
		years := session.Candidate.ExperienceYears
		if extracted, ok := ExtractExperience(text); ok {
			years = extracted
			session.Candidate.ExperienceYears = extracted
		}
		session.DifficultyLevel = interview.LevelForExperience(years)
		session.Candidate.Tier = session.DifficultyLevel
		session.Phase = interview.PhaseTechnical
		next = o.nextTechnical(session, now)

	case interview.PhaseTechnical:
		if verdict != nil {
			session.NextDifficulty = interview.NextDifficulty(verdict.Correctness)
			session.DifficultyLevel = session.DifficultyLevel.Shift(session.NextDifficulty)
		}
		if session.TechnicalQuestionsAsked < TechnicalQuestions {
			next = o.nextTechnical(session, now)
		} else {
			session.Phase = interview.PhaseBehavioral
			next = o.nextBehavioral(session, now)
		}

	case interview.PhaseBehavioral:
		if session.BehavioralQuestionsAsked < BehavioralQuestions {
			next = o.nextBehavioral(session, now)
		} else {
			session.Phase = interview.PhaseComplete
			summary := rollup.Summarize(session.GradedAnswers())
			session.Summary = &summary
		}
	}

	if next != nil {
		session.Transcript = append(session.Transcript, interview.QuestionEntry(*next))
	}
	session.Turn++
	session.UpdatedAt = now

	snapshot := session.SnapshotLocked()
	result := &ReplyResult{Session: snapshot, NextQuestion: next}
	if snapshot.Summary != nil {
		result.Completed = true
		result.Summary = snapshot.Summary
	}

	return result, snapshot, from, nil
}

// ensureRegistry rebuilds a registry for sessions decoded without one.
func (o *Orchestrator) ensureRegistry(session *interview.Session) {
	if session.Registry != nil {
		return
	}
	session.Registry = fingerprint.NewRegistry()
	for _, e := range session.Transcript {
		if e.Kind == interview.EntryQuestion && e.Question != nil {
			session.Registry.Register(e.Question.Text)
		}
	}
}

func (o *Orchestrator) nextTechnical(session *interview.Session, now time.Time) *interview.Question {
	key, level := session.Candidate.RoleKey, session.DifficultyLevel
	entry := o.pick(session, o.catalog.Technical(key, level), session.TechnicalQuestionsAsked)
	session.TechnicalQuestionsAsked++

	return &interview.Question{
		Text:         entry.Question,
		Stage:        interview.StageTechnical,
		SkillFocus:   skillFocus(entry),
		TimeLimitSec: catalog.TimeLimit(interview.StageTechnical, level),
		Rubric:       o.catalog.Rubric(key, entry),
		Difficulty:   level,
		AskedAt:      now,
	}
}

func (o *Orchestrator) nextBehavioral(session *interview.Session, now time.Time) *interview.Question {
	key := session.Candidate.RoleKey
	entry := o.pick(session, o.catalog.Behavioral(key), session.BehavioralQuestionsAsked)
	session.BehavioralQuestionsAsked++

	return &interview.Question{
		Text:         entry.Question,
		Stage:        interview.StageBehavioral,
		SkillFocus:   skillFocus(entry),
		TimeLimitSec: catalog.TimeLimit(interview.StageBehavioral, session.DifficultyLevel),
		Rubric:       o.catalog.Rubric(key, entry),
		AskedAt:      now,
	}
}

// pick selects the next bank entry that was not asked yet, or a generic
// question once the bank only yields duplicates.
func (o *Orchestrator) pick(session *interview.Session, bank []catalog.Entry, offset int) catalog.Entry {
	if idx, ok := fingerprint.SelectNext(session.Registry, catalog.Questions(bank), offset); ok {
		return bank[idx]
	}

	o.observer.FallbackQuestion()
	o.logger.Warn("question bank exhausted, asking a generic question",
		logger.SessionFields(session.ID, string(session.Phase), session.Candidate.RoleKey)...,
	)
	return catalog.Entry{Question: fingerprint.Fallback(session.Registry)}
}

func skillFocus(e catalog.Entry) string {
	if s := strings.TrimSpace(e.SkillFocus); s != "" {
		return s
	}
	return rollup.GeneralSkill
}

func (o *Orchestrator) persist(ctx context.Context, snapshot *interview.Session, log *zap.Logger) {
	if o.store == nil {
		return
	}
	if err := o.store.UpdateSession(ctx, snapshot.ID, snapshot, storage.StatusOf(snapshot)); err != nil {
		log.Error("failed to persist session", zap.Error(err))
		o.observer.StoreError("update")
	}
}

type nopObserver struct{}

func (nopObserver) SessionStarted() {}
func (nopObserver) PhaseTransition(_, _ interview.Phase) {}
func (nopObserver) SessionCompleted(_ interview.Summary) {}
func (nopObserver) FallbackQuestion() {}
func (nopObserver) StoreError(_ string) {}
