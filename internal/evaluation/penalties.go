package evaluation

import (
	"math"

	"github.com/spigell/hh-interviewer/internal/interview"
)

const maxTimingPenalty = 10

var flagPenalties = map[interview.Flag]int{
	interview.FlagInsufficientLength:  10,
	interview.FlagTooGeneric:          15,
	interview.FlagLacksTechnicalDepth: 10,
}

// ApplyQualityPenalties subtracts the penalty of every raised flag from all
// four dimensions. Scores never drop below zero.
func ApplyQualityPenalties(s interview.Scores, flags []interview.Flag) interview.Scores {
	total := 0
	for _, flag := range flags {
		total += flagPenalties[flag]
	}
	if total == 0 {
		return s.Clamp()
	}

	return interview.Scores{
		Correctness:  s.Correctness - total,
		Completeness: s.Completeness - total,
		Clarity:      s.Clarity - total,
		Relevance:    s.Relevance - total,
	}.Clamp()
}

// TimingPenalty is the correctness deduction for running over the time
// limit, capped at 10 and rounded to one decimal.
func TimingPenalty(takenSec, limitSec float64) float64 {
	if limitSec <= 0 || takenSec <= limitSec {
		return 0
	}
	p := math.Min(maxTimingPenalty, (takenSec-limitSec)/limitSec*maxTimingPenalty)
	return math.Round(p*10) / 10
}

// ApplyTimingPenalty deducts the penalty from correctness only.
func ApplyTimingPenalty(s interview.Scores, penalty float64) interview.Scores {
	s.Correctness -= int(math.Round(penalty))
	return s.Clamp()
}
