// Package progress implements hybrid student progress tracking: a cheap
// heuristic tracker updated on every message, and an LLM-backed deep
// evaluator reserved for cases where the heuristic signal is ambiguous.
package progress

import (
	"fmt"
	"time"
)

// Turn is one message of a tutoring conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
)

// GroundTruth is the verified correct solution a conversation is
// evaluated against. Immutable from this package's point of view.
type GroundTruth struct {
	// ProblemID identifies the problem this solution belongs to.
	// It is folded into the evaluation cache key so that identical
	// conversations about different problems never share cache entries.
	ProblemID     string   `json:"problem_id,omitempty"`
	KeyConcepts   []string `json:"key_concepts"`
	SolutionSteps []string `json:"solution_steps"`
	FinalAnswer   string   `json:"final_answer"`
}

// Understanding levels reported by deep evaluation.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Evaluation methods.
const (
	MethodHeuristic = "heuristic"
	MethodDeepLLM   = "deep_llm"
)

// Evaluation is the result of a progress evaluation. Field names form the
// wire contract consumed by the solution unlock policy; do not rename.
type Evaluation struct {
	ConceptScore       int       `json:"concept_score"`
	ApproachScore      int       `json:"approach_score"`
	CalculationScore   int       `json:"calculation_score"`
	OverallProgress    int       `json:"overall_progress"`
	CoveredConcepts    []string  `json:"covered_concepts"`
	MissingConcepts    []string  `json:"missing_concepts"`
	UnderstandingLevel string    `json:"understanding_level"`
	Feedback           string    `json:"feedback"`
	FromCache          bool      `json:"from_cache"`
	EvaluatedAt        time.Time `json:"evaluated_at"`
	Method             string    `json:"method,omitempty"`

	// Degradation reports an internal failure that was absorbed by a
	// fallback. The evaluation itself is always usable; this is a side
	// channel for logging and observability only.
	Degradation *EvalError `json:"-"`
}

// EvalError describes an absorbed internal failure during deep evaluation.
type EvalError struct {
	Stage string // "summarize" or "compare"
	Err   error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s degraded: %v", e.Stage, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }
