package evaluation

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// DefaultScores replace any dimension the oracle omitted or garbled.
var DefaultScores = interview.Scores{Correctness: 70, Completeness: 65, Clarity: 75, Relevance: 70}

// Request is the graded unit handed to the oracle.
type Request struct {
	Question   string
	SkillFocus string
	Rubric     interview.Rubric
	Answer     string
}

// Sample is one validated oracle judgment.
type Sample struct {
	interview.Scores
	Notes []string
}

// Oracle issues a single grading request and validates the response shape.
type Oracle struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

// NewOracle wraps a generator.
func NewOracle(generator ai.Generator, logger *zap.Logger, maxLogLength int) *Oracle {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Oracle{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Evaluate returns one sample or an *EvalError describing why none is usable.
func (o *Oracle) Evaluate(ctx context.Context, req Request) (Sample, error) {
	system := buildPrompt(req)
	message := "Candidate answer:\n" + strings.TrimSpace(req.Answer)

	o.logger.Debug("oracle request",
		zap.String("skill_focus", req.SkillFocus),
		zap.Int("prompt_length", utf8.RuneCountInString(system)),
		zap.String("prompt_preview", utils.TruncateForLog(system, o.maxLogLen)),
	)

	raw, err := o.generator.GenerateContent(ctx, system, message)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Sample{}, newEvalError(KindTimeout, err)
		}
		return Sample{}, newEvalError(KindCall, err)
	}

	o.logger.Debug("oracle response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, o.maxLogLen)),
	)

	sample, err := parseSample(raw)
	if err != nil {
		return Sample{}, newEvalError(KindMalformed, err)
	}

	return sample, nil
}

func buildPrompt(req Request) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Question: {{QUESTION}}\nSkill: {{SKILL_FOCUS}}\nExpected:\n{{EXPECTED_POINTS}}\nKeywords: {{KEYWORDS}}\nMistakes: {{COMMON_MISTAKES}}\nJSON Response:"
	}

	replacer := strings.NewReplacer(
		"{{QUESTION}}", strings.TrimSpace(req.Question),
		"{{SKILL_FOCUS}}", orNone(req.SkillFocus),
		"{{EXPECTED_POINTS}}", bulletList(req.Rubric.ExpectedPoints),
		"{{KEYWORDS}}", orNone(strings.Join(req.Rubric.Keywords, ", ")),
		"{{COMMON_MISTAKES}}", orNone(strings.Join(req.Rubric.CommonMistakes, ", ")),
	)
	return replacer.Replace(template)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- none specified"
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+strings.TrimSpace(item))
	}
	return strings.Join(lines, "\n")
}

func orNone(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "none specified"
	}
	return s
}

func parseSample(raw string) (Sample, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return Sample{}, err
	}

	scores := interview.Scores{
		Correctness:  coerceScore(data["correctness"], DefaultScores.Correctness),
		Completeness: coerceScore(data["completeness"], DefaultScores.Completeness),
		Clarity:      coerceScore(data["clarity"], DefaultScores.Clarity),
		Relevance:    coerceScore(data["relevance"], DefaultScores.Relevance),
	}

	return Sample{Scores: scores, Notes: coerceNotes(data["notes"])}, nil
}

func coerceScore(v any, fallback int) int {
	if v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "/100"))
		if s == "" {
			return fallback
		}
		v = s
	}

	var f float64
	if err := mapstructure.WeakDecode(v, &f); err != nil {
		return fallback
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}

	return interview.ClampScore(int(math.Round(f)))
}

func coerceNotes(v any) []string {
	if v == nil {
		return nil
	}

	var notes []string
	if err := mapstructure.WeakDecode(v, &notes); err != nil {
		return nil
	}

	out := notes[:0]
	for _, note := range notes {
		if note = strings.TrimSpace(note); note != "" {
			out = append(out, note)
		}
	}
	return out
}
