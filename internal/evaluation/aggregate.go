package evaluation

import (
	"math"
	"sort"
	"strings"

	"github.com/spigell/hh-interviewer/internal/interview"
)

const (
	maxNotes               = 3
	highConfidenceVariance = 100
	midConfidenceVariance  = 400
)

// Aggregate combines successful samples into per-dimension medians. It must
// be called with at least one sample.
func Aggregate(samples []Sample) (interview.Scores, interview.Confidence, []string) {
	pick := func(get func(Sample) int) []int {
		out := make([]int, len(samples))
		for i, s := range samples {
			out[i] = get(s)
		}
		return out
	}

	correctness := pick(func(s Sample) int { return s.Correctness })
	scores := interview.Scores{
		Correctness:  Median(correctness),
		Completeness: Median(pick(func(s Sample) int { return s.Completeness })),
		Clarity:      Median(pick(func(s Sample) int { return s.Clarity })),
		Relevance:    Median(pick(func(s Sample) int { return s.Relevance })),
	}

	notes := make([][]string, len(samples))
	for i, s := range samples {
		notes[i] = s.Notes
	}

	return scores.Clamp(), ConfidenceFor(correctness), MergeNotes(notes...)
}

// Median of the values; an even count averages the middle pair.
func Median(values []int) int {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]int(nil), values...)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return int(math.Round(float64(sorted[mid-1]+sorted[mid]) / 2))
}

// Variance is the population variance.
func Variance(values []int) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return sq / float64(len(values))
}

// ConfidenceFor maps the spread of correctness samples to a label. A lone
// sample has no spread to judge and is always low.
func ConfidenceFor(correctness []int) interview.Confidence {
	if len(correctness) < 2 {
		return interview.ConfidenceLow
	}

	switch v := Variance(correctness); {
	case v < highConfidenceVariance:
		return interview.ConfidenceHigh
	case v < midConfidenceVariance:
		return interview.ConfidenceMedium
	default:
		return interview.ConfidenceLow
	}
}

// MergeNotes keeps the most frequent distinct notes across samples. Notes are
// compared case-insensitively; ties keep first-seen order.
func MergeNotes(groups ...[]string) []string {
	type tally struct {
		text  string
		count int
		first int
	}

	seen := make(map[string]*tally)
	var order []*tally

	for _, notes := range groups {
		for _, note := range notes {
			note = strings.TrimSpace(note)
			if note == "" {
				continue
			}
			key := strings.ToLower(strings.TrimRight(note, ".!"))
			if t, ok := seen[key]; ok {
				t.count++
				continue
			}
			t := &tally{text: note, count: 1, first: len(order)}
			seen[key] = t
			order = append(order, t)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	out := make([]string, 0, maxNotes)
	for _, t := range order {
		if len(out) == maxNotes {
			break
		}
		out = append(out, t.text)
	}
	return out
}
