package evaluation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/quality"
)

const (
	// Samples is the number of independent oracle calls per answer.
	Samples = 3

	defaultCallTimeout    = 30 * time.Second
	defaultMaxConcurrency = 6

	OutcomeOK = "ok"
)

// AIGeneratedScores is the fixed verdict for answers that read like
// assistant output.
var AIGeneratedScores = interview.Scores{Correctness: 20, Completeness: 20, Clarity: 30, Relevance: 20}

// Sampler produces one oracle judgment.
type Sampler interface {
	Evaluate(ctx context.Context, req Request) (Sample, error)
}

// Observer receives evaluation telemetry.
type Observer interface {
	OracleCall(outcome string, elapsed time.Duration)
	Verdict(v interview.Verdict)
}

// Input describes one answer to grade.
type Input struct {
	Answer       string
	Question     interview.Question
	TimeTakenSec float64
}

// Config bounds oracle usage.
type Config struct {
	CallTimeout time.Duration
	// MaxConcurrentCalls caps outstanding oracle calls across every session
	// sharing this evaluator.
	MaxConcurrentCalls int64
}

// Evaluator grades answers by consensus over several oracle samples.
type Evaluator struct {
	sampler     Sampler
	detector    *quality.Detector
	sem         *semaphore.Weighted
	callTimeout time.Duration
	observer    Observer
	logger      *zap.Logger
}

// NewEvaluator builds an evaluator. A nil sampler grades every answer with
// the local heuristic.
func NewEvaluator(sampler Sampler, detector *quality.Detector, cfg Config, observer Observer, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if detector == nil {
		detector = quality.New(logger)
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.MaxConcurrentCalls <= 0 {
		cfg.MaxConcurrentCalls = defaultMaxConcurrency
	}

	return &Evaluator{
		sampler:     sampler,
		detector:    detector,
		sem:         semaphore.NewWeighted(cfg.MaxConcurrentCalls),
		callTimeout: cfg.CallTimeout,
		observer:    observer,
		logger:      logger,
	}
}

// Evaluate always returns a bounded verdict. Oracle failures degrade to the
// heuristic scorer and are reported only through the verdict markers.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) interview.Verdict {
	report := e.detector.Detect(in.Answer)

	verdict := interview.Verdict{
		QualityFlags: append([]interview.Flag(nil), report.Flags...),
		Confidence:   interview.ConfidenceLow,
	}

	if report.Has(interview.FlagLikelyAIGenerated) {
		verdict.Scores = AIGeneratedScores
		verdict.Notes = []string{"Answer reads like generated assistant text and was not sent for grading"}
		e.logger.Info("skipping oracle for generated-looking answer",
			zap.String("skill_focus", in.Question.SkillFocus),
		)
		e.observe(verdict)
		return verdict
	}

	samples := e.collect(ctx, Request{
		Question:   in.Question.Text,
		SkillFocus: in.Question.SkillFocus,
		Rubric:     in.Question.Rubric,
		Answer:     in.Answer,
	})

	if len(samples) == 0 {
		verdict.Scores = Heuristic(in.Answer, in.Question.Rubric)
		verdict.Notes = heuristicNotes(in.Answer, in.Question.Rubric)
		e.logger.Warn("all oracle samples failed, using heuristic scorer",
			zap.String("skill_focus", in.Question.SkillFocus),
		)
	} else {
		verdict.Scores, verdict.Confidence, verdict.Notes = Aggregate(samples)
		verdict.ConsensusUsed = true
		verdict.SamplesUsed = len(samples)
	}

	verdict.Scores = ApplyQualityPenalties(verdict.Scores, report.Flags)

	verdict.TimingPenaltyApplied = TimingPenalty(in.TimeTakenSec, in.Question.TimeLimitSec)
	verdict.Scores = ApplyTimingPenalty(verdict.Scores, verdict.TimingPenaltyApplied)

	e.logger.Debug("answer graded",
		zap.Int("correctness", verdict.Correctness),
		zap.String("confidence", string(verdict.Confidence)),
		zap.Int("samples", verdict.SamplesUsed),
		zap.Float64("timing_penalty", verdict.TimingPenaltyApplied),
	)

	e.observe(verdict)
	return verdict
}

// collect issues exactly Samples oracle calls and waits for all of them to
// settle. Only successful samples are returned.
func (e *Evaluator) collect(ctx context.Context, req Request) []Sample {
	if e.sampler == nil {
		return nil
	}

	results := make([]Sample, Samples)
	ok := make([]bool, Samples)

	var g errgroup.Group
	for i := 0; i < Samples; i++ {
		g.Go(func() error {
			sample, err := e.sample(ctx, req)
			if err != nil {
				e.logger.Warn("oracle sample failed", zap.Int("sample", i), zap.Error(err))
				return nil
			}
			results[i] = sample
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var out []Sample
	for i, sample := range results {
		if ok[i] {
			out = append(out, sample)
		}
	}
	return out
}

func (e *Evaluator) sample(ctx context.Context, req Request) (Sample, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		evalErr := newEvalError(KindCall, err)
		e.observeCall(evalErr, 0)
		return Sample{}, evalErr
	}
	defer e.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	started := time.Now()
	sample, err := e.sampler.Evaluate(callCtx, req)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		var evalErr *EvalError
		if !errors.As(err, &evalErr) || evalErr.Kind != KindTimeout {
			err = newEvalError(KindTimeout, err)
		}
	}
	e.observeCall(err, time.Since(started))

	return sample, err
}

func (e *Evaluator) observeCall(err error, elapsed time.Duration) {
	if e.observer == nil {
		return
	}

	outcome := OutcomeOK
	if err != nil {
		outcome = string(KindCall)
		var evalErr *EvalError
		if errors.As(err, &evalErr) {
			outcome = string(evalErr.Kind)
		}
	}
	e.observer.OracleCall(outcome, elapsed)
}

func (e *Evaluator) observe(v interview.Verdict) {
	if e.observer != nil {
		e.observer.Verdict(v)
	}
}
