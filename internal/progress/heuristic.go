package progress

import (
	"math"
	"strings"
)

// Physics vocabulary the lightweight tracker scans for. Matching is
// case-insensitive substring containment against the lowered message.
var (
	highValueKeywords = []string{
		"theorem", "law", "principle", "equation", "formula",
		"derive", "integration", "differentiation", "substitution",
	}
	mediumValueKeywords = []string{
		"mass", "velocity", "acceleration", "force", "energy",
		"momentum", "torque", "inertia", "axis", "symmetry",
	}
	reasoningIndicators = []string{
		"because", "therefore", "since", "so", "thus",
		"apply", "using", "considering",
	}
	// Checked against the raw message, not the lowered one.
	formulaSymbols = []string{"=", "*", "/", "^", "²", "³", "√"}
)

// Deep-evaluation trigger band. Scores strictly below the floor or
// strictly above the ceiling are decisive; everything between is
// borderline and warrants the expensive evaluation.
const (
	triggerFloor   = 30
	triggerCeiling = 70
)

// Minimum message length for a question to count as engaged thinking.
// Short lookup questions like "What is momentum?" carry no progress
// signal.
const minEngagedQuestionLen = 20

// HeuristicScore maps a tally to a 0-100 progress estimate using a
// weighted sum of five capped components. Pure and total.
func HeuristicScore(s *State) int {
	// Message engagement, capped at 15 messages (max 25 points).
	score := math.Min(25, float64(s.MessageCount)/15*25)

	// Distinct physics keywords (max 30 points).
	score += math.Min(30, float64(len(s.KeywordsMentioned))*5)

	// Reasoning connectives: the student explaining their thinking
	// (max 20 points).
	score += math.Min(20, float64(s.ConceptIndicatorCount)*4)

	// Formula attempts (max 15 points).
	score += math.Min(15, float64(s.FormulaAttemptCount)*5)

	// Engaged questions (max 10 points).
	score += math.Min(10, float64(s.QuestionCount)*3)

	n := int(math.Round(score))
	if n > 100 {
		n = 100
	}
	if n < 0 {
		n = 0
	}
	return n
}

// LightweightTracker updates session tallies from each new student
// message. It performs no I/O, never fails, and runs in time linear in
// the message and vocabulary sizes.
type LightweightTracker struct{}

// NewLightweightTracker returns a tracker.
func NewLightweightTracker() *LightweightTracker {
	return &LightweightTracker{}
}

// Update applies one student message to the state and recomputes the
// heuristic score. A nil state is created fresh. The ground truth is
// accepted for interface parity with the deep path; the heuristic does
// not consult it.
func (t *LightweightTracker) Update(state *State, message string, _ *GroundTruth) *State {
	if state == nil {
		state = NewState()
	}

	lowered := strings.ToLower(message)

	state.MessageCount++

	for _, kw := range highValueKeywords {
		if strings.Contains(lowered, kw) && !state.HasKeyword(kw) {
			state.KeywordsMentioned = append(state.KeywordsMentioned, kw)
		}
	}
	for _, kw := range mediumValueKeywords {
		if strings.Contains(lowered, kw) && !state.HasKeyword(kw) {
			state.KeywordsMentioned = append(state.KeywordsMentioned, kw)
		}
	}

	// At most one reasoning credit per message.
	for _, ind := range reasoningIndicators {
		if strings.Contains(lowered, ind) {
			state.ConceptIndicatorCount++
			break
		}
	}

	for _, sym := range formulaSymbols {
		if strings.Contains(message, sym) {
			state.FormulaAttemptCount++
			break
		}
	}

	if strings.Contains(message, "?") && len(message) > minEngagedQuestionLen {
		state.QuestionCount++
	}

	state.HeuristicScore = HeuristicScore(state)
	return state
}

// ShouldTriggerDeepEvaluation decides whether the expensive LLM
// evaluation is warranted. A session with no tally at all always
// triggers; a decisive heuristic score (below 30 or above 70) skips the
// deep path; the borderline band in between triggers it.
func (t *LightweightTracker) ShouldTriggerDeepEvaluation(state *State) bool {
	if state == nil {
		return true
	}
	if state.HeuristicScore < triggerFloor {
		return false
	}
	if state.HeuristicScore > triggerCeiling {
		return false
	}
	return true
}
