package evaluation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/interview"
)

type stubGenerator struct {
	output  string
	err     error
	system  string
	message string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.system = system
	s.message = message
	return s.output, s.err
}

func (s *stubGenerator) Model() string { return "stub" }

func TestOracleParsesLooseResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		output string
		expect interview.Scores
		notes  []string
	}{
		{
			name:   "plain json",
			output: `{"correctness": 85, "completeness": 78, "clarity": 92, "relevance": 80, "notes": ["Solid grasp of joins"]}`,
			expect: interview.Scores{Correctness: 85, Completeness: 78, Clarity: 92, Relevance: 80},
			notes:  []string{"Solid grasp of joins"},
		},
		{
			name:   "fenced with prose and loose fields",
			output: "Sure, here is the grade:\n```json\n{\"correctness\": \"85\", \"completeness\": 140, \"notes\": \"Good structure\"}\n```\nLet me know!",
			expect: interview.Scores{Correctness: 85, Completeness: 100, Clarity: 75, Relevance: 70},
			notes:  []string{"Good structure"},
		},
		{
			name:   "braces inside strings",
			output: `Result: {"notes": ["wrap it in {braces}"], "correctness": 61.6, "completeness": -4, "clarity": "70/100", "relevance": 50} trailing`,
			expect: interview.Scores{Correctness: 62, Completeness: 0, Clarity: 70, Relevance: 50},
			notes:  []string{"wrap it in {braces}"},
		},
		{
			name:   "garbage field values",
			output: `{"correctness": "excellent", "completeness": null, "clarity": {"x": 1}, "relevance": ""}`,
			expect: DefaultScores,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := NewOracle(&stubGenerator{output: tt.output}, zap.NewNop(), 0)
			sample, err := o.Evaluate(context.Background(), Request{Question: "q", Answer: "a"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sample.Scores != tt.expect {
				t.Fatalf("expected %+v, got %+v", tt.expect, sample.Scores)
			}
			if strings.Join(sample.Notes, "|") != strings.Join(tt.notes, "|") {
				t.Fatalf("expected notes %v, got %v", tt.notes, sample.Notes)
			}
		})
	}
}

func TestOracleRepairsTruncatedJSON(t *testing.T) {
	o := NewOracle(&stubGenerator{
		output: `{"correctness": 88, "completeness": 70, "clarity": 60, "relevance": 75, "notes": ["ok"`,
	}, nil, 0)

	sample, err := o.Evaluate(context.Background(), Request{Answer: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := interview.Scores{Correctness: 88, Completeness: 70, Clarity: 60, Relevance: 75}
	if sample.Scores != want {
		t.Fatalf("expected %+v, got %+v", want, sample.Scores)
	}
}

func TestOracleErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gen  *stubGenerator
		kind ErrorKind
	}{
		{name: "no object", gen: &stubGenerator{output: "I would rate this answer highly."}, kind: KindMalformed},
		{name: "call failure", gen: &stubGenerator{err: errors.New("boom")}, kind: KindCall},
		{name: "deadline", gen: &stubGenerator{err: context.DeadlineExceeded}, kind: KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewOracle(tt.gen, nil, 0).Evaluate(context.Background(), Request{Answer: "a"})

			var evalErr *EvalError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected *EvalError, got %v", err)
			}
			if evalErr.Kind != tt.kind {
				t.Fatalf("expected kind %s, got %s", tt.kind, evalErr.Kind)
			}
		})
	}
}

func TestOraclePromptEmbedsRubric(t *testing.T) {
	gen := &stubGenerator{output: `{"correctness": 80}`}
	o := NewOracle(gen, nil, 0)

	_, err := o.Evaluate(context.Background(), Request{
		Question:   "How do you find duplicate rows?",
		SkillFocus: "SQL",
		Rubric: interview.Rubric{
			ExpectedPoints: []string{"GROUP BY with HAVING"},
			Keywords:       []string{"group by", "having"},
			CommonMistakes: []string{"using DISTINCT only"},
		},
		Answer: "  I group by the key columns.  ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"How do you find duplicate rows?", "Skill focus: SQL", "- GROUP BY with HAVING", "group by, having", "using DISTINCT only"} {
		if !strings.Contains(gen.system, want) {
			t.Fatalf("expected prompt to contain %q:\n%s", want, gen.system)
		}
	}
	if strings.Contains(gen.system, "{{") {
		t.Fatalf("unreplaced placeholder in prompt:\n%s", gen.system)
	}
	if gen.message != "Candidate answer:\nI group by the key columns." {
		t.Fatalf("unexpected message: %q", gen.message)
	}
}

func TestExtractObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect string
		ok     bool
	}{
		{input: `x {"a": {"b": 1}} y {"c": 2}`, expect: `{"a": {"b": 1}}`, ok: true},
		{input: `{"a": "}\"{"}`, expect: `{"a": "}\"{"}`, ok: true},
		{input: `{"a": 1`, expect: `{"a": 1`, ok: true},
		{input: `no json`, ok: false},
	}

	for _, tt := range tests {
		got, ok := extractObject(tt.input)
		if ok != tt.ok || got != tt.expect {
			t.Fatalf("extractObject(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.expect, tt.ok)
		}
	}
}
