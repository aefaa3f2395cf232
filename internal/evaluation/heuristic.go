package evaluation

import (
	"math"
	"strings"

	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/utils"
)

var fillerWords = map[string]struct{}{
	"um": {}, "uh": {}, "er": {}, "erm": {}, "hmm": {},
	"maybe": {}, "probably": {}, "perhaps": {}, "guess": {},
}

// Heuristic scores an answer locally from its length, rubric keyword
// overlap and filler-word count. It is deterministic for a given input.
func Heuristic(answer string, rubric interview.Rubric) interview.Scores {
	words := float64(utils.WordCount(answer))
	keywords := float64(keywordHits(answer, rubric.Keywords))
	fillers := float64(fillerCount(answer))

	return interview.Scores{
		Correctness:  bounded(words*3, 40, 85),
		Completeness: bounded(words*2.5, 35, 80),
		Clarity:      bounded(100-fillers*10, 50, 90),
		Relevance:    bounded(70+keywords*5, 45, 85),
	}.Clamp()
}

func heuristicNotes(answer string, rubric interview.Rubric) []string {
	notes := []string{"Scored locally because the grading service was unavailable"}

	if hits := keywordHits(answer, rubric.Keywords); hits > 0 {
		notes = append(notes, "Mentions expected terminology")
	} else {
		notes = append(notes, "Could reference more of the expected concepts")
	}

	if utils.WordCount(answer) < 30 {
		notes = append(notes, "Could benefit from more specific examples")
	} else {
		notes = append(notes, "Answer provided with reasonable length")
	}

	return notes
}

func keywordHits(answer string, keywords []string) int {
	lower := strings.ToLower(answer)
	hits := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}

func fillerCount(answer string) int {
	n := 0
	for _, token := range strings.Fields(strings.ToLower(answer)) {
		token = strings.Trim(token, ".,;:!?\"'()")
		if _, ok := fillerWords[token]; ok {
			n++
		}
	}
	return n
}

func bounded(v, lo, hi float64) int {
	return int(math.Floor(math.Min(hi, math.Max(lo, v))))
}
