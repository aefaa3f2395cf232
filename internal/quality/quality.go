package quality

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/interview"
)

// Check is a single local heuristic run against an answer.
type Check interface {
	Flag() interview.Flag
	Detect(a *Answer) bool
}

// Answer is the pre-tokenized answer shared by all checks.
type Answer struct {
	Raw   string
	Lower string
	Words []string
}

// NewAnswer tokenizes the answer text once.
func NewAnswer(text string) *Answer {
	lower := strings.ToLower(text)
	var words []string
	for _, token := range strings.Fields(lower) {
		word := strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			words = append(words, word)
		}
	}
	return &Answer{Raw: text, Lower: lower, Words: words}
}

// WordCount returns the number of words in the answer.
func (a *Answer) WordCount() int {
	return len(a.Words)
}

// Report lists the flags raised for an answer.
type Report struct {
	Flags     []interview.Flag
	WordCount int
}

// Has reports whether the flag was raised.
func (r Report) Has(flag interview.Flag) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Detector runs the checks in order.
type Detector struct {
	checks []Check
	logger *zap.Logger
}

// New builds a detector with the default check set.
func New(logger *zap.Logger) *Detector {
	return NewWithChecks(DefaultChecks(), logger)
}

// NewWithChecks builds a detector with the given checks.
func NewWithChecks(checks []Check, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{checks: checks, logger: logger}
}

// DefaultChecks returns the standard taxonomy, in evaluation order.
func DefaultChecks() []Check {
	return []Check{
		insufficientLength{},
		likelyAIGenerated{},
		potentialCopyPaste{},
		tooGeneric{},
		repetitiveContent{},
		lacksTechnicalDepth{},
	}
}

// Detect runs every check against the answer text.
func (d *Detector) Detect(text string) Report {
	answer := NewAnswer(text)
	report := Report{WordCount: answer.WordCount()}

	for _, check := range d.checks {
		if !check.Detect(answer) {
			continue
		}
		report.Flags = append(report.Flags, check.Flag())
	}

	if len(report.Flags) > 0 {
		flags := make([]string, 0, len(report.Flags))
		for _, f := range report.Flags {
			flags = append(flags, string(f))
		}
		d.logger.Debug("quality flags raised",
			zap.Strings("flags", flags),
			zap.Int("word_count", report.WordCount),
		)
	}

	return report
}
