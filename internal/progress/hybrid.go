package progress

import (
	"context"
	"time"
)

// HybridTracker composes the lightweight tracker with the deep evaluator:
// cheap tallies on every message, the LLM pipeline only when the
// heuristic signal is ambiguous.
type HybridTracker struct {
	lightweight *LightweightTracker
	deep        *DeepEvaluator
	now         func() time.Time
}

// NewHybridTracker creates a HybridTracker around an existing deep
// evaluator.
func NewHybridTracker(deep *DeepEvaluator) *HybridTracker {
	return &HybridTracker{
		lightweight: NewLightweightTracker(),
		deep:        deep,
		now:         time.Now,
	}
}

// UpdateRealtime applies one student message to the session tally.
// Cheap, synchronous, called on every message.
func (h *HybridTracker) UpdateRealtime(state *State, message string, gt *GroundTruth) *State {
	return h.lightweight.Update(state, message, gt)
}

// AccurateProgress returns the best available progress evaluation. When
// the heuristic score is decisive it is reported directly without any
// LLM call; otherwise the deep pipeline runs.
func (h *HybridTracker) AccurateProgress(ctx context.Context, state *State, history []Turn, gt *GroundTruth, problemStatement string, useCache bool) *Evaluation {
	if gt == nil {
		gt = &GroundTruth{}
	}

	if !h.lightweight.ShouldTriggerDeepEvaluation(state) {
		score := 25
		if state != nil {
			score = state.HeuristicScore
		}
		return &Evaluation{
			ConceptScore:       score,
			ApproachScore:      score,
			CalculationScore:   score,
			OverallProgress:    score,
			CoveredConcepts:    []string{},
			MissingConcepts:    append([]string(nil), gt.KeyConcepts...),
			UnderstandingLevel: levelForScore(score),
			Feedback:           "Keep working through the problem!",
			EvaluatedAt:        h.now(),
			Method:             MethodHeuristic,
		}
	}

	return h.deep.Evaluate(ctx, history, gt, problemStatement, useCache)
}

func levelForScore(score int) string {
	switch {
	case score > 70:
		return LevelAdvanced
	case score >= 30:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}
