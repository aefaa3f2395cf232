package fingerprint

// genericQuestions are role-agnostic prompts used when the bank is exhausted.
// They share no key words with each other.
var genericQuestions = []string{
	"Tell me about a challenging technical problem you solved recently.",
	"Which recent project are you most proud of, and what was your personal contribution?",
	"Describe a situation where requirements changed late and how you adapted.",
	"What is something you learned in the last year that reshaped your work habits?",
	"How do you decide between shipping quickly and polishing quality?",
	"Walk me through how you debug an issue you have never seen before.",
	"Share a mistake from your career and what it taught you.",
	"How do you keep teammates informed about progress and risks?",
}

// Fallback returns the first generic question that does not duplicate an
// already asked one and registers it. Sessions never ask more questions than
// there are generic ones, so the final pick is only a terminal guarantee.
func Fallback(r *Registry) string {
	for _, q := range genericQuestions {
		if r.IsDuplicate(q) {
			continue
		}
		r.Register(q)
		return q
	}

	q := genericQuestions[r.Len()%len(genericQuestions)]
	r.Register(q)
	return q
}
