package fingerprint

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	// fingerprintWords is the number of leading key words that form a fingerprint.
	fingerprintWords = 5
	// minWordLength excludes short words from fingerprints and word sets.
	minWordLength = 3
	// OverlapThreshold is the word-set overlap ratio above which two questions are duplicates.
	OverlapThreshold = 0.6
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// "at <company>" and "with <tool>" clauses carry context, not the question itself.
	clauseRe = regexp.MustCompile(`\b(?:at|with)\s+[^\s]+`)
)

// fillerWords never contribute to fingerprints.
var fillerWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "you": {}, "your": {}, "are": {}, "was": {}, "were": {},
	"can": {}, "could": {}, "would": {}, "should": {}, "will": {}, "have": {}, "has": {}, "had": {},
	"how": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "there": {}, "their": {}, "them": {},
	"about": {}, "into": {}, "from": {}, "over": {}, "some": {}, "any": {}, "all": {},
	"did": {}, "does": {}, "doing": {}, "been": {}, "being": {}, "its": {}, "our": {},
	"tell": {}, "describe": {}, "explain": {}, "walk": {}, "through": {}, "give": {},
	"example": {}, "time": {}, "please": {}, "like": {}, "just": {}, "also": {}, "then": {},
	"use": {}, "used": {}, "using": {}, "way": {}, "ways": {}, "make": {}, "made": {},
	"yourself": {}, "they": {}, "with": {}, "not": {}, "but": {}, "one": {},
}

// Normalize lowercases the text, collapses whitespace, strips trailing
// punctuation and drops "at <company>" / "with <tool>" clauses.
func Normalize(text string) string {
	out := strings.ToLower(text)
	out = clauseRe.ReplaceAllString(out, " ")
	out = whitespaceRe.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)
	out = strings.TrimRightFunc(out, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return out
}

// Words returns the key words of the normalized text in order of appearance:
// punctuation is trimmed, short words and filler words are dropped.
func Words(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	var words []string
	for _, token := range strings.Fields(normalized) {
		word := strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(word)) < minWordLength {
			continue
		}
		if _, filler := fillerWords[word]; filler {
			continue
		}
		words = append(words, word)
	}

	return words
}

// Of computes the order-insensitive signature of a question: the sorted set
// of its first five key words. Text without key words is signed by its
// normalized form.
func Of(text string) string {
	seen := make(map[string]struct{}, fingerprintWords)
	picked := make([]string, 0, fingerprintWords)
	for _, word := range Words(text) {
		if len(picked) == fingerprintWords {
			break
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		picked = append(picked, word)
	}
	if len(picked) == 0 {
		return Normalize(text)
	}
	sort.Strings(picked)
	return strings.Join(picked, " ")
}

// Overlap returns |A∩B| / max(|A|,|B|) for the key-word sets of two questions.
func Overlap(a, b string) float64 {
	return overlap(wordSet(a), wordSet(b))
}

func wordSet(text string) map[string]struct{} {
	words := Words(text)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) float64 {
	larger := max(len(a), len(b))
	if larger == 0 {
		return 0
	}

	small, big := a, b
	if len(small) > len(big) {
		small, big = big, small
	}

	common := 0
	for w := range small {
		if _, ok := big[w]; ok {
			common++
		}
	}

	return float64(common) / float64(larger)
}
