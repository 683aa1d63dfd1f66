package progress

// State holds the per-session tally of lightweight progress signals.
// It is owned by the session that created it and serialized into the
// session record between requests.
type State struct {
	// MessageCount is incremented once per inbound student message.
	MessageCount int `json:"message_count"`

	// KeywordsMentioned is the set of physics vocabulary terms seen so
	// far. A term is added at most once per session and never removed.
	KeywordsMentioned []string `json:"keywords_mentioned"`

	// ConceptIndicatorCount counts messages containing a reasoning
	// connective ("because", "therefore", ...), at most one per message.
	ConceptIndicatorCount int `json:"concept_indicator_count"`

	// FormulaAttemptCount counts messages containing a math symbol.
	FormulaAttemptCount int `json:"formula_attempt_count"`

	// QuestionCount counts engaged questions: messages containing a
	// question mark and long enough to carry substance.
	QuestionCount int `json:"question_count"`

	// HeuristicScore is derived from the tallies above on every update.
	// Never mutate it directly.
	HeuristicScore int `json:"heuristic_score"`
}

// NewState returns an empty tally.
func NewState() *State {
	return &State{KeywordsMentioned: []string{}}
}

// HasKeyword reports whether the keyword set already contains kw.
func (s *State) HasKeyword(kw string) bool {
	for _, k := range s.KeywordsMentioned {
		if k == kw {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	dup := *s
	dup.KeywordsMentioned = append([]string(nil), s.KeywordsMentioned...)
	return &dup
}
