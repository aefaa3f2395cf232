package interview

// Flag is a quality-flag taxonomy tag.
type Flag string

const (
	FlagInsufficientLength  Flag = "insufficient_length"
	FlagLikelyAIGenerated   Flag = "likely_ai_generated"
	FlagPotentialCopyPaste  Flag = "potential_copy_paste"
	FlagTooGeneric          Flag = "too_generic"
	FlagRepetitiveContent   Flag = "repetitive_content"
	FlagLacksTechnicalDepth Flag = "lacks_technical_depth"
)

// Confidence expresses agreement between oracle samples.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Scores are the four graded dimensions.
type Scores struct {
	Correctness  int `json:"correctness"`
	Completeness int `json:"completeness"`
	Clarity      int `json:"clarity"`
	Relevance    int `json:"relevance"`
}

// Clamp bounds every dimension to [0,100].
func (s Scores) Clamp() Scores {
	return Scores{
		Correctness:  ClampScore(s.Correctness),
		Completeness: ClampScore(s.Completeness),
		Clarity:      ClampScore(s.Clarity),
		Relevance:    ClampScore(s.Relevance),
	}
}

// Mean is the unweighted average of the four dimensions.
func (s Scores) Mean() float64 {
	return float64(s.Correctness+s.Completeness+s.Clarity+s.Relevance) / 4
}

// ClampScore bounds a score to [0,100].
func ClampScore(v int) int {
	return max(MinScore, min(v, MaxScore))
}

// Verdict is the penalty-adjusted outcome of grading one answer.
type Verdict struct {
	Scores
	Notes                []string   `json:"notes"`
	QualityFlags         []Flag     `json:"quality_flags"`
	Confidence           Confidence `json:"confidence"`
	ConsensusUsed        bool       `json:"consensus_used"`
	SamplesUsed          int        `json:"samples_used"`
	TimingPenaltyApplied float64    `json:"timing_penalty_applied"`
}

// HasFlag reports whether the verdict carries the flag.
func (v Verdict) HasFlag(flag Flag) bool {
	for _, f := range v.QualityFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (v Verdict) Clone() Verdict {
	out := v
	out.Notes = append([]string(nil), v.Notes...)
	out.QualityFlags = append([]Flag(nil), v.QualityFlags...)
	return out
}

// Summary is the session-level rollup.
type Summary struct {
	DimensionAverages DimensionAverages  `json:"dimension_averages"`
	SkillScores       map[string]float64 `json:"skill_scores"`
	OverallScore      float64            `json:"overall_score"`
	TotalQuestions    int                `json:"total_questions"`
	Recommendation    string             `json:"recommendation,omitempty"`
}

// DimensionAverages are per-dimension means across graded answers.
type DimensionAverages struct {
	Correctness  float64 `json:"correctness"`
	Completeness float64 `json:"completeness"`
	Clarity      float64 `json:"clarity"`
	Relevance    float64 `json:"relevance"`
}

// Clone returns a deep copy.
func (s Summary) Clone() Summary {
	out := s
	out.SkillScores = make(map[string]float64, len(s.SkillScores))
	for k, v := range s.SkillScores {
		out.SkillScores[k] = v
	}
	return out
}
