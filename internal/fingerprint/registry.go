package fingerprint

// MaxAttempts bounds how many bank candidates SelectNext inspects.
const MaxAttempts = 5

// Registry records the questions already asked in one session. It only grows.
// A Registry is owned by a single session and is not safe for concurrent use.
type Registry struct {
	Fingerprints []string `json:"fingerprints"`
	Questions    []string `json:"questions"`

	index map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Len returns the number of registered questions.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Questions)
}

// Has reports whether the exact fingerprint was registered.
func (r *Registry) Has(fp string) bool {
	r.ensureIndex()
	_, ok := r.index[fp]
	return ok
}

// IsDuplicate reports whether the question repeats or nearly repeats one
// that was already asked.
func (r *Registry) IsDuplicate(question string) bool {
	if fp := Of(question); fp != "" && r.Has(fp) {
		return true
	}

	candidate := wordSet(question)
	for _, asked := range r.Questions {
		if overlap(candidate, wordSet(asked)) > OverlapThreshold {
			return true
		}
	}

	return false
}

// Register records the question.
func (r *Registry) Register(question string) {
	r.ensureIndex()
	fp := Of(question)
	r.Fingerprints = append(r.Fingerprints, fp)
	r.Questions = append(r.Questions, question)
	r.index[fp] = struct{}{}
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return NewRegistry()
	}
	return &Registry{
		Fingerprints: append([]string(nil), r.Fingerprints...),
		Questions:    append([]string(nil), r.Questions...),
	}
}

// ensureIndex rebuilds the lookup index, e.g. after the registry was decoded from JSON.
func (r *Registry) ensureIndex() {
	if r.index != nil {
		return
	}
	r.index = make(map[string]struct{}, len(r.Fingerprints))
	for _, fp := range r.Fingerprints {
		r.index[fp] = struct{}{}
	}
}

// SelectNext walks at most MaxAttempts bank candidates starting at offset,
// cycling modulo the bank size, and registers the first one that is not a
// duplicate. It returns the index of the accepted candidate, or false when
// every attempt was a duplicate.
func SelectNext(r *Registry, candidates []string, offset int) (int, bool) {
	if len(candidates) == 0 {
		return -1, false
	}
	if offset < 0 {
		offset = 0
	}

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		idx := (offset + attempt) % len(candidates)
		if r.IsDuplicate(candidates[idx]) {
			continue
		}
		r.Register(candidates[idx])
		return idx, true
	}

	return -1, false
}
