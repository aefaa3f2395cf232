// Package rollup folds per-answer verdicts into a session summary.
package rollup

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/hh-interviewer/internal/interview"
)

const (
	// NeutralScore is reported for every field when nothing was graded.
	NeutralScore = 70
	// GeneralSkill groups answers without a skill focus.
	GeneralSkill = "General"

	weightCorrectness  = 0.40
	weightCompleteness = 0.25
	weightClarity      = 0.20
	weightRelevance    = 0.15

	strongThreshold     = 80
	acceptableThreshold = 70
)

// Summarize computes dimension averages, per-skill averages and the weighted
// overall score over answers that carry a verdict. Answers without one are
// ignored.
func Summarize(answers []interview.Answer) interview.Summary {
	var (
		graded int
		totals interview.DimensionAverages
		skills = make(map[string][]float64)
	)

	for _, a := range answers {
		if a.Verdict == nil {
			continue
		}
		v := a.Verdict
		graded++

		totals.Correctness += float64(v.Correctness)
		totals.Completeness += float64(v.Completeness)
		totals.Clarity += float64(v.Clarity)
		totals.Relevance += float64(v.Relevance)

		skill := strings.TrimSpace(a.SkillFocus)
		if skill == "" {
			skill = GeneralSkill
		}
		skills[skill] = append(skills[skill], v.Scores.Mean())
	}

	if graded == 0 {
		return Neutral()
	}

	n := float64(graded)
	averages := interview.DimensionAverages{
		Correctness:  totals.Correctness / n,
		Completeness: totals.Completeness / n,
		Clarity:      totals.Clarity / n,
		Relevance:    totals.Relevance / n,
	}

	overall := averages.Correctness*weightCorrectness +
		averages.Completeness*weightCompleteness +
		averages.Clarity*weightClarity +
		averages.Relevance*weightRelevance

	skillScores := make(map[string]float64, len(skills))
	for skill, scores := range skills {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		skillScores[skill] = Round1(sum / float64(len(scores)))
	}

	summary := interview.Summary{
		DimensionAverages: interview.DimensionAverages{
			Correctness:  Round1(averages.Correctness),
			Completeness: Round1(averages.Completeness),
			Clarity:      Round1(averages.Clarity),
			Relevance:    Round1(averages.Relevance),
		},
		SkillScores:    skillScores,
		OverallScore:   Round1(overall),
		TotalQuestions: graded,
	}
	summary.Recommendation = Recommendation(summary.OverallScore)

	return summary
}

// Neutral is the summary of a session with no graded answers.
func Neutral() interview.Summary {
	return interview.Summary{
		DimensionAverages: interview.DimensionAverages{
			Correctness:  NeutralScore,
			Completeness: NeutralScore,
			Clarity:      NeutralScore,
			Relevance:    NeutralScore,
		},
		SkillScores:    map[string]float64{GeneralSkill: NeutralScore},
		OverallScore:   NeutralScore,
		TotalQuestions: 0,
		Recommendation: Recommendation(NeutralScore),
	}
}

// Recommendation renders the score band, e.g. "82 - Strong performance".
func Recommendation(overall float64) string {
	band := "Needs improvement"
	switch {
	case overall >= strongThreshold:
		band = "Strong performance"
	case overall >= acceptableThreshold:
		band = "Acceptable performance"
	}
	return fmt.Sprintf("%d - %s", int(overall), band)
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
