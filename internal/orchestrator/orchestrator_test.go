package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hh-interviewer/internal/catalog"
	"github.com/spigell/hh-interviewer/internal/evaluation"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/storage"
)

type scriptedGrader struct {
	mu     sync.Mutex
	scores []int
	inputs []evaluation.Input
}

func (g *scriptedGrader) Evaluate(_ context.Context, in evaluation.Input) interview.Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	score := 70
	if n := len(g.inputs); n < len(g.scores) {
		score = g.scores[n]
	}
	g.inputs = append(g.inputs, in)

	return interview.Verdict{
		Scores:        interview.Scores{Correctness: score, Completeness: score, Clarity: score, Relevance: score},
		Confidence:    interview.ConfidenceHigh,
		ConsensusUsed: true,
		SamplesUsed:   evaluation.Samples,
	}
}

type failingStore struct {
	creates int
	updates int
}

func (s *failingStore) CreateSession(context.Context, interview.Candidate, *interview.Session) (string, error) {
	s.creates++
	return "", errors.New("database is down")
}

func (s *failingStore) UpdateSession(context.Context, string, *interview.Session, storage.Status) error {
	s.updates++
	return errors.New("database is down")
}

type recordingObserver struct {
	started     int
	transitions []string
	completed   int
	fallbacks   int
	storeErrors []string
}

func (r *recordingObserver) SessionStarted() { r.started++ }

func (r *recordingObserver) PhaseTransition(from, to interview.Phase) {
	r.transitions = append(r.transitions, string(from)+">"+string(to))
}

func (r *recordingObserver) SessionCompleted(interview.Summary) { r.completed++ }

func (r *recordingObserver) FallbackQuestion() { r.fallbacks++ }

func (r *recordingObserver) StoreError(op string) { r.storeErrors = append(r.storeErrors, op) }

func newOrchestrator(t *testing.T, deps Deps) *Orchestrator {
	t.Helper()

	if deps.Catalog == nil {
		c, err := catalog.Default()
		if err != nil {
			t.Fatalf("loading catalog: %v", err)
		}
		deps.Catalog = c
	}
	if deps.Grader == nil {
		deps.Grader = &scriptedGrader{}
	}

	o, err := New(deps)
	if err != nil {
		t.Fatalf("building orchestrator: %v", err)
	}
	return o
}

var analyst = interview.Candidate{Name: "Ann", JobTitle: "Senior Data Analyst", ExperienceYears: 4}

func TestFullInterview(t *testing.T) {
	grader := &scriptedGrader{scores: []int{85, 45, 65, 90, 70, 70}}
	store := storage.NewMemoryStore()
	obs := &recordingObserver{}
	o := newOrchestrator(t, Deps{Grader: grader, Store: store, Observer: obs})
	ctx := context.Background()

	start, err := o.Start(ctx, analyst)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	session := start.Session

	if session.Candidate.RoleKey != "data_analyst" || session.DifficultyLevel != interview.LevelIntermediate {
		t.Fatalf("unexpected candidate derivation: %+v", session.Candidate)
	}
	if start.Question.Stage != interview.StageIntroduction || start.Question.TimeLimitSec != catalog.IntroductionTimeLimit {
		t.Fatalf("unexpected first question: %+v", start.Question)
	}
	if !strings.Contains(start.Question.Text, "Ann") {
		t.Fatalf("expected greeting to use the name: %q", start.Question.Text)
	}

	res, err := o.Reply(ctx, session, "I am Ann, I have 8 years of experience building dashboards and SQL pipelines.", 60)
	if err != nil {
		t.Fatalf("intro reply: %v", err)
	}
	if res.Session.Phase != interview.PhaseTechnical || res.Session.DifficultyLevel != interview.LevelExpert {
		t.Fatalf("expected expert technical round, got %s/%s", res.Session.Phase, res.Session.DifficultyLevel)
	}
	if len(grader.inputs) != 0 {
		t.Fatal("introduction must not be graded")
	}

	levels := []interview.Level{res.NextQuestion.Difficulty}
	for i := 0; i < TechnicalQuestions; i++ {
		res, err = o.Reply(ctx, session, "technical answer", 30)
		if err != nil {
			t.Fatalf("technical reply %d: %v", i+1, err)
		}
		if i < TechnicalQuestions-1 {
			levels = append(levels, res.NextQuestion.Difficulty)
		}
	}

	wantLevels := []interview.Level{interview.LevelExpert, interview.LevelExpert, interview.LevelIntermediate, interview.LevelIntermediate}
	for i, want := range wantLevels {
		if levels[i] != want {
			t.Fatalf("technical question %d: expected %s, got %s (all: %v)", i+1, want, levels[i], levels)
		}
	}

	if res.Session.Phase != interview.PhaseBehavioral || res.NextQuestion.Stage != interview.StageBehavioral {
		t.Fatalf("expected behavioral question after the 4th technical answer, got %s", res.Session.Phase)
	}
	if res.Session.TechnicalQuestionsAsked != 4 || res.Session.BehavioralQuestionsAsked != 1 {
		t.Fatalf("unexpected counters: %d/%d", res.Session.TechnicalQuestionsAsked, res.Session.BehavioralQuestionsAsked)
	}
	if res.Session.NextDifficulty != interview.AdjustHarder {
		t.Fatalf("expected harder after a 90, got %s", res.Session.NextDifficulty)
	}

	res, err = o.Reply(ctx, session, "behavioral answer", 30)
	if err != nil || res.Completed {
		t.Fatalf("first behavioral reply: completed=%v err=%v", res != nil && res.Completed, err)
	}

	res, err = o.Reply(ctx, session, "behavioral answer", 30)
	if err != nil {
		t.Fatalf("final reply: %v", err)
	}
	if !res.Completed || res.Summary == nil || res.NextQuestion != nil {
		t.Fatalf("expected completion, got %+v", res)
	}
	if res.Summary.TotalQuestions != 6 || res.Summary.OverallScore != 70.8 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	if len(grader.inputs) != 6 {
		t.Fatalf("expected 6 graded answers, got %d", len(grader.inputs))
	}

	seen := map[string]bool{}
	for _, e := range res.Session.Transcript {
		if e.Kind != interview.EntryQuestion {
			continue
		}
		if seen[e.Question.Text] {
			t.Fatalf("question asked twice: %q", e.Question.Text)
		}
		seen[e.Question.Text] = true
	}
	if len(seen) != 7 {
		t.Fatalf("expected 7 questions, got %d", len(seen))
	}

	rec, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("reading stored session: %v", err)
	}
	if rec.Status != storage.StatusCompleted || rec.TotalQuestions != 6 {
		t.Fatalf("unexpected stored record: status=%s total=%d", rec.Status, rec.TotalQuestions)
	}

	wantTransitions := []string{"introduction>technical", "technical>behavioral", "behavioral>complete"}
	if strings.Join(obs.transitions, ",") != strings.Join(wantTransitions, ",") {
		t.Fatalf("unexpected transitions: %v", obs.transitions)
	}
	if obs.started != 1 || obs.completed != 1 || len(obs.storeErrors) != 0 {
		t.Fatalf("unexpected observer state: %+v", obs)
	}

	if _, err := o.Reply(ctx, session, "one more thing", 5); !errors.Is(err, interview.ErrSessionComplete) {
		t.Fatalf("expected ErrSessionComplete, got %v", err)
	}
}

func TestTechnicalTimeLimitsFollowLevel(t *testing.T) {
	o := newOrchestrator(t, Deps{})
	ctx := context.Background()

	start, err := o.Start(ctx, interview.Candidate{Name: "Bo", JobTitle: "Software Developer", ExperienceYears: 1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	res, err := o.Reply(ctx, start.Session, "Hello, I recently graduated and build small web apps.", 20)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if res.NextQuestion.Difficulty != interview.LevelBasic || res.NextQuestion.TimeLimitSec != 90 {
		t.Fatalf("expected basic question with 90s limit, got %+v", res.NextQuestion)
	}
	if res.NextQuestion.Rubric.IsZero() {
		t.Fatal("expected rubric to fall back to the role default")
	}
}

func TestReplyRejectsInvalidInputWithoutMutation(t *testing.T) {
	o := newOrchestrator(t, Deps{})
	start, err := o.Start(context.Background(), analyst)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	before := start.Session.Snapshot()

	tests := []struct {
		name   string
		answer string
		taken  float64
		field  string
	}{
		{name: "empty", answer: "", field: "answer"},
		{name: "whitespace", answer: " \n\t ", field: "answer"},
		{name: "negative time", answer: "hello", taken: -1, field: "time_taken_sec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Reply(context.Background(), start.Session, tt.answer, tt.taken)

			var vErr *interview.ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.field {
				t.Fatalf("expected validation error on %s, got %v", tt.field, err)
			}
			if !errors.Is(err, interview.ErrInvalidInput) {
				t.Fatal("expected error to wrap ErrInvalidInput")
			}
		})
	}

	after := start.Session.Snapshot()
	if len(after.Transcript) != len(before.Transcript) || after.Phase != before.Phase || after.Turn != before.Turn {
		t.Fatal("session mutated by rejected input")
	}
}

func TestStartValidatesCandidate(t *testing.T) {
	o := newOrchestrator(t, Deps{})

	_, err := o.Start(context.Background(), interview.Candidate{Name: "  ", JobTitle: "Data Analyst"})
	if !errors.Is(err, interview.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestStoreFailuresAreNotFatal(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := &failingStore{}
	obs := &recordingObserver{}
	o := newOrchestrator(t, Deps{Store: store, Observer: obs, Logger: zap.New(core)})
	ctx := context.Background()

	start, err := o.Start(ctx, analyst)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.Session.ID == "" {
		t.Fatal("expected a locally generated id")
	}

	if _, err := o.Reply(ctx, start.Session, "I have worked with data for a few years.", 10); err != nil {
		t.Fatalf("reply: %v", err)
	}

	if store.creates != 1 || store.updates != 1 {
		t.Fatalf("unexpected store calls: %+v", store)
	}
	if strings.Join(obs.storeErrors, ",") != "create,update" {
		t.Fatalf("unexpected store errors: %v", obs.storeErrors)
	}
	if logs.FilterMessage("failed to persist session").Len() != 1 {
		t.Fatal("expected persistence failure to be logged")
	}
}

func TestOracleOutageStillCompletes(t *testing.T) {
	sampler := failingSampler{}
	grader := evaluation.NewEvaluator(sampler, nil, evaluation.Config{CallTimeout: time.Second}, nil, nil)
	o := newOrchestrator(t, Deps{Grader: grader})
	ctx := context.Background()

	start, err := o.Start(ctx, analyst)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	answer := "I would check the join keys, look at the query plan, and compare row counts between the source and result tables."
	var res *ReplyResult
	for i := 0; i < 1+TechnicalQuestions+BehavioralQuestions; i++ {
		res, err = o.Reply(ctx, start.Session, answer, 10)
		if err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
	}

	if !res.Completed {
		t.Fatal("expected the session to complete")
	}
	for _, a := range res.Session.GradedAnswers() {
		if a.Verdict.ConsensusUsed || a.Verdict.Confidence != interview.ConfidenceLow {
			t.Fatalf("expected heuristic verdicts, got %+v", a.Verdict)
		}
	}
}

type failingSampler struct{}

func (failingSampler) Evaluate(context.Context, evaluation.Request) (evaluation.Sample, error) {
	return evaluation.Sample{}, errors.New("oracle unavailable")
}

const repetitiveCatalog = `
introduction: Hi {{NAME}}, tell me about yourself.
fallback_role: general
roles:
  general:
    default_rubric:
      keywords: [example]
    technical:
      basic:
        - question: Explain how you test your code.
          skill_focus: Testing
        - question: Explain how you test your code!
        - question: explain how you TEST your code
      intermediate:
        - question: Explain how you test your code.
      expert:
        - question: Explain how you test your code.
    behavioral:
      - question: Describe a conflict with a teammate.
      - question: Describe a conflict with a teammate.
`

func TestExhaustedBankFallsBackToGenericQuestions(t *testing.T) {
	c, err := catalog.Parse([]byte(repetitiveCatalog))
	if err != nil {
		t.Fatalf("parsing catalog: %v", err)
	}
	obs := &recordingObserver{}
	o := newOrchestrator(t, Deps{Catalog: c, Observer: obs})
	ctx := context.Background()

	start, err := o.Start(ctx, interview.Candidate{Name: "Cy", JobTitle: "Plumber"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	var res *ReplyResult
	for i := 0; i < 1+TechnicalQuestions+BehavioralQuestions; i++ {
		res, err = o.Reply(ctx, start.Session, "An answer about testing with concrete examples.", 10)
		if err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
	}

	if !res.Completed {
		t.Fatal("expected completion")
	}
	// one unique technical and one unique behavioral question in the bank
	if obs.fallbacks != 4 {
		t.Fatalf("expected 4 generic questions, got %d", obs.fallbacks)
	}

	seen := map[string]bool{}
	for _, e := range res.Session.Transcript {
		if e.Kind == interview.EntryQuestion {
			if seen[e.Question.Text] {
				t.Fatalf("duplicate question %q", e.Question.Text)
			}
			seen[e.Question.Text] = true
			if e.Question.SkillFocus == "" {
				t.Fatalf("question without skill focus: %q", e.Question.Text)
			}
		}
	}
}

func TestConcurrentRepliesAdvanceOnce(t *testing.T) {
	o := newOrchestrator(t, Deps{})
	ctx := context.Background()

	start, err := o.Start(ctx, analyst)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, lost int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Reply(ctx, start.Session, "I have 2 years of experience.", 5)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, interview.ErrConcurrentReply), errors.Is(err, interview.ErrSessionComplete):
				lost++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	snap := start.Session.Snapshot()
	if snap.Turn != ok {
		t.Fatalf("turn %d does not match %d successful replies", snap.Turn, ok)
	}
	if ok+lost != 8 {
		t.Fatalf("expected every reply accounted for, got ok=%d lost=%d", ok, lost)
	}
	for i, e := range snap.Transcript {
		want := interview.EntryQuestion
		if i%2 == 1 {
			want = interview.EntryAnswer
		}
		if e.Kind != want {
			t.Fatalf("transcript entry %d is %s, want %s", i, e.Kind, want)
		}
	}
}

func TestExtractExperience(t *testing.T) {
	tests := []struct {
		text  string
		years float64
		ok    bool
	}{
		{text: "I have 5 years of experience", years: 5, ok: true},
		{text: "2 yrs at a startup and then 7+ years in banking", years: 7, ok: true},
		{text: "About 3.5 years with Python", years: 3.5, ok: true},
		{text: "I graduated last spring", ok: false},
		{text: "since 1999 years ago", ok: false},
	}

	for _, tt := range tests {
		years, ok := ExtractExperience(tt.text)
		if ok != tt.ok || years != tt.years {
			t.Fatalf("ExtractExperience(%q) = %v, %v; want %v, %v", tt.text, years, ok, tt.years, tt.ok)
		}
	}
}

func TestNewRequiresCatalogAndGrader(t *testing.T) {
	if _, err := New(Deps{Grader: &scriptedGrader{}}); err == nil {
		t.Fatal("expected error without catalog")
	}
	c, _ := catalog.Default()
	if _, err := New(Deps{Catalog: c}); err == nil {
		t.Fatal("expected error without grader")
	}
}
