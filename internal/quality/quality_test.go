package quality

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hh-interviewer/internal/interview"
)

const plainLongAnswer = "I think we just look at the rows and then we fix the bad ones and we talk to the team " +
	"about what they want and then we do it again until it looks good and the boss is happy with the work we did that week"

func TestDetectorFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect []interview.Flag
	}{
		{
			name:   "short answer",
			input:  "I use SQL.",
			expect: []interview.Flag{interview.FlagInsufficientLength},
		},
		{
			name:   "assistant disclaimer",
			input:  "As an AI language model, I don't have personal experience with production databases but here is an overview.",
			expect: []interview.Flag{interview.FlagLikelyAIGenerated},
		},
		{
			name:   "citation markers",
			input:  "According to Wikipedia [1], normalization reduces redundancy in relational schemas, see https://example.org for details.",
			expect: []interview.Flag{interview.FlagPotentialCopyPaste},
		},
		{
			name:   "hedging",
			input:  "It depends on many factors, but in general you should just follow best practices for the team.",
			expect: []interview.Flag{interview.FlagTooGeneric},
		},
		{
			name:   "repetition",
			input:  strings.Repeat("data pipeline data ", 10),
			expect: []interview.Flag{interview.FlagRepetitiveContent},
		},
		{
			name:   "long but shallow",
			input:  plainLongAnswer,
			expect: []interview.Flag{interview.FlagLacksTechnicalDepth},
		},
	}

	d := New(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			report := d.Detect(tt.input)
			for _, flag := range tt.expect {
				if !report.Has(flag) {
					t.Fatalf("expected %s in %v", flag, report.Flags)
				}
			}
		})
	}
}

func TestDetectorCleanAnswer(t *testing.T) {
	d := New(nil)
	report := d.Detect("I would partition the orders table by created_at, add a composite index on (customer_id, status), " +
		"and use EXPLAIN ANALYZE to confirm the planner picks an index scan instead of a sequential scan.")

	if len(report.Flags) != 0 {
		t.Fatalf("expected no flags, got %v", report.Flags)
	}
	if report.WordCount != 32 {
		t.Fatalf("expected 32 words, got %d", report.WordCount)
	}
}

func TestShortAnswerIsNotShallow(t *testing.T) {
	report := New(nil).Detect("we fix the bad rows")
	if report.Has(interview.FlagLacksTechnicalDepth) {
		t.Fatalf("depth check must not fire on short answers: %v", report.Flags)
	}
	if report.Has(interview.FlagRepetitiveContent) {
		t.Fatalf("repetition check must not fire on short answers: %v", report.Flags)
	}
}

func TestEtcdIsNotHedging(t *testing.T) {
	report := New(nil).Detect("We run etcd in general on three nodes with raft snapshots every hour for recovery.")
	if report.Has(interview.FlagTooGeneric) {
		t.Fatalf("expected a single hedge to be tolerated, got %v", report.Flags)
	}
}

func TestTechnicalTokens(t *testing.T) {
	t.Parallel()

	got := TechnicalTokens("use pandas.merge with df_left and HTTP2 and camelCase and simple words")
	if got != 4 {
		t.Fatalf("expected 4 technical tokens, got %d", got)
	}

	if got := TechnicalTokens(""); got != 0 {
		t.Fatalf("expected 0 for empty text, got %d", got)
	}
}

func TestDetectorLogsRaisedFlags(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	d := New(zap.New(core))

	d.Detect("too short")

	entries := observed.FilterMessage("quality flags raised").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if got := entries[0].ContextMap()["word_count"]; got != int64(2) {
		t.Fatalf("expected word_count 2, got %v", got)
	}
}

func TestCustomChecks(t *testing.T) {
	d := NewWithChecks([]Check{insufficientLength{}}, nil)
	report := d.Detect("As an AI I cannot help")
	if len(report.Flags) != 1 || report.Flags[0] != interview.FlagInsufficientLength {
		t.Fatalf("expected only the configured check to run, got %v", report.Flags)
	}
}
