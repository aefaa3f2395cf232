package quality

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/spigell/hh-interviewer/internal/interview"
)

const (
	minWords             = 10
	genericHedgeLimit    = 2
	repetitionMinWords   = 20
	repetitionMinUnique  = 0.4
	depthMinWords        = 40
	depthMinTechTokens   = 3
	technicalTokenLength = 8
)

// Pattern tables are built once and only read afterwards.
var (
	disclaimerRe = phrases(
		"as an ai", "as an ai language model", "as a language model", "i am an ai",
		"i'm an ai", "i don't have personal experience", "i do not have personal experience",
		"i cannot provide personal", "i don't have the ability", "my training data",
		"as of my last update", "as of my knowledge cutoff",
	)

	citationRe = regexp.MustCompile(`(?i)\baccording to\b|\bsource:|\bet al\.|\bwikipedia\b|\[\d+\]|https?://|\bretrieved from\b|\bcited in\b`)

	hedgeRe = phrases(
		"it depends", "in general", "generally speaking", "various", "many factors",
		"best practices", "etc", "and so on", "some kind of", "things like that",
		"as needed", "in many ways", "at the end of the day", "it varies",
	)
)

func phrases(list ...string) *regexp.Regexp {
	quoted := make([]string, 0, len(list))
	for _, p := range list {
		quoted = append(quoted, regexp.QuoteMeta(p))
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

type insufficientLength struct{}

func (insufficientLength) Flag() interview.Flag { return interview.FlagInsufficientLength }

func (insufficientLength) Detect(a *Answer) bool { return a.WordCount() < minWords }

type likelyAIGenerated struct{}

func (likelyAIGenerated) Flag() interview.Flag { return interview.FlagLikelyAIGenerated }

func (likelyAIGenerated) Detect(a *Answer) bool { return disclaimerRe.MatchString(a.Lower) }

type potentialCopyPaste struct{}

func (potentialCopyPaste) Flag() interview.Flag { return interview.FlagPotentialCopyPaste }

func (potentialCopyPaste) Detect(a *Answer) bool { return citationRe.MatchString(a.Raw) }

type tooGeneric struct{}

func (tooGeneric) Flag() interview.Flag { return interview.FlagTooGeneric }

func (tooGeneric) Detect(a *Answer) bool {
	return len(hedgeRe.FindAllStringIndex(a.Lower, -1)) >= genericHedgeLimit
}

type repetitiveContent struct{}

func (repetitiveContent) Flag() interview.Flag { return interview.FlagRepetitiveContent }

func (repetitiveContent) Detect(a *Answer) bool {
	if a.WordCount() <= repetitionMinWords {
		return false
	}
	unique := make(map[string]struct{}, len(a.Words))
	for _, w := range a.Words {
		unique[w] = struct{}{}
	}
	return float64(len(unique))/float64(a.WordCount()) < repetitionMinUnique
}

type lacksTechnicalDepth struct{}

func (lacksTechnicalDepth) Flag() interview.Flag { return interview.FlagLacksTechnicalDepth }

func (lacksTechnicalDepth) Detect(a *Answer) bool {
	if a.WordCount() < depthMinWords {
		return false
	}
	return TechnicalTokens(a.Raw) < depthMinTechTokens
}

// TechnicalTokens counts tokens that look technical: long words, identifiers
// with digits or inner capitals, and dotted/underscored names.
func TechnicalTokens(text string) int {
	count := 0
	for _, token := range strings.Fields(text) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return unicode.IsSpace(r) || strings.ContainsRune(`"'.,;:!?()[]{}`, r)
		})
		if isTechnical(token) {
			count++
		}
	}
	return count
}

func isTechnical(token string) bool {
	runes := []rune(token)
	if len(runes) == 0 {
		return false
	}
	if len(runes) >= technicalTokenLength {
		return true
	}

	hasLetter := false
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
			if i > 0 && unicode.IsUpper(r) {
				return true
			}
		case unicode.IsDigit(r):
			if hasLetter || i > 0 {
				return true
			}
		case strings.ContainsRune("_./#+", r):
			if i > 0 && i < len(runes)-1 {
				return true
			}
		}
	}

	return false
}
