package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/abhinavg/jeetutor/internal/llm"
)

// ComparatorConfig holds generation settings for summary-vs-solution
// comparison.
type ComparatorConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultComparatorConfig returns the settings the service ships with.
func DefaultComparatorConfig() ComparatorConfig {
	return ComparatorConfig{
		MaxTokens:   500,
		Temperature: 0.2,
	}
}

// Comparator scores a conversation summary against the verified solution.
type Comparator struct {
	provider llm.Provider
	cfg      ComparatorConfig
}

// NewComparator creates a Comparator.
func NewComparator(provider llm.Provider, cfg ComparatorConfig) *Comparator {
	return &Comparator{provider: provider, cfg: cfg}
}

// comparisonResult mirrors the JSON object the model is asked to emit.
// Scores arrive as floats because models routinely emit "85.0".
type comparisonResult struct {
	ConceptScore       float64  `json:"concept_score"`
	ApproachScore      float64  `json:"approach_score"`
	CalculationScore   float64  `json:"calculation_score"`
	OverallProgress    float64  `json:"overall_progress"`
	CoveredConcepts    []string `json:"covered_concepts"`
	MissingConcepts    []string `json:"missing_concepts"`
	UnderstandingLevel string   `json:"understanding_level"`
	Feedback           string   `json:"feedback"`
}

// Compare scores the summary against the ground truth. It never returns
// an unusable result: model or parse failures degrade to the
// deterministic fallback, reported through the second return value.
func (c *Comparator) Compare(ctx context.Context, summary, problemStatement string, gt *GroundTruth) (*Evaluation, *EvalError) {
	ctx = llm.WithPurpose(ctx, "compare-progress")

	resp, err := c.provider.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildComparisonPrompt(summary, problemStatement, gt)},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return c.Fallback(summary, gt), &EvalError{Stage: "compare", Err: err}
	}

	eval, err := parseComparison(resp.Text())
	if err != nil {
		return c.Fallback(summary, gt), &EvalError{Stage: "compare", Err: err}
	}
	return eval, nil
}

// Fallback produces a deterministic evaluation by substring-matching key
// concepts against the summary. Scores are deliberately conservative.
func (c *Comparator) Fallback(summary string, gt *GroundTruth) *Evaluation {
	lowered := strings.ToLower(summary)

	matched := 0
	for _, concept := range gt.KeyConcepts {
		if strings.Contains(lowered, strings.ToLower(concept)) {
			matched++
		}
	}

	progress := 25
	if len(gt.KeyConcepts) > 0 {
		progress = int(math.Round(100 * float64(matched) / float64(len(gt.KeyConcepts))))
	}

	conceptScore := progress
	if conceptScore < 25 {
		conceptScore = 25
	}
	overall := progress
	if overall < 25 {
		overall = 25
	}

	return &Evaluation{
		ConceptScore:       conceptScore,
		ApproachScore:      25,
		CalculationScore:   25,
		OverallProgress:    overall,
		CoveredConcepts:    []string{},
		MissingConcepts:    append([]string(nil), gt.KeyConcepts...),
		UnderstandingLevel: LevelBeginner,
		Feedback:           "Unable to perform detailed evaluation. Keep working through the problem!",
	}
}

// parseComparison extracts the model's JSON verdict, tolerating markdown
// code fences around the object.
func parseComparison(raw string) (*Evaluation, error) {
	cleaned := stripCodeFences(strings.TrimSpace(raw))

	var result comparisonResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("parsing comparison response: %w", err)
	}

	concept := clampScore(result.ConceptScore)
	approach := clampScore(result.ApproachScore)
	calculation := clampScore(result.CalculationScore)

	// Recompute the weighted overall rather than trusting the model's
	// arithmetic.
	overall := int(math.Round(0.4*float64(concept) + 0.3*float64(approach) + 0.3*float64(calculation)))

	level := result.UnderstandingLevel
	switch level {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
	default:
		level = LevelBeginner
	}

	feedback := strings.TrimSpace(result.Feedback)
	if feedback == "" {
		feedback = "Keep working through the problem!"
	}

	covered := result.CoveredConcepts
	if covered == nil {
		covered = []string{}
	}
	missing := result.MissingConcepts
	if missing == nil {
		missing = []string{}
	}

	return &Evaluation{
		ConceptScore:       concept,
		ApproachScore:      approach,
		CalculationScore:   calculation,
		OverallProgress:    overall,
		CoveredConcepts:    covered,
		MissingConcepts:    missing,
		UnderstandingLevel: level,
		Feedback:           feedback,
	}, nil
}

func clampScore(v float64) int {
	n := int(math.Round(v))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// stripCodeFences removes a surrounding markdown code fence if present.
func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line ("```" or "```json").
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	} else {
		return strings.TrimPrefix(s, "```")
	}
	// Drop everything from the closing fence on.
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func buildComparisonPrompt(summary, problemStatement string, gt *GroundTruth) string {
	concepts, _ := json.Marshal(gt.KeyConcepts)
	steps, _ := json.Marshal(gt.SolutionSteps)

	var b strings.Builder
	b.WriteString("Compare the student's progress against the correct solution.\n\n")
	if problemStatement != "" {
		b.WriteString("Problem:\n")
		b.WriteString(problemStatement)
		b.WriteString("\n\n")
	}
	b.WriteString("Student's Understanding (Summary):\n")
	b.WriteString(summary)
	b.WriteString("\n\nCorrect Solution:\n")
	b.WriteString("Key Concepts: ")
	b.Write(concepts)
	b.WriteString("\nSolution Steps: ")
	b.Write(steps)
	b.WriteString("\nFinal Answer: ")
	b.WriteString(gt.FinalAnswer)
	b.WriteString("\n\nEvaluate and respond in this exact JSON format:\n")
	b.WriteString(`{
  "concept_score": 0-100,
  "approach_score": 0-100,
  "calculation_score": 0-100,
  "overall_progress": 0-100,
  "covered_concepts": ["concepts the student understands"],
  "missing_concepts": ["concepts not yet demonstrated"],
  "understanding_level": "beginner|intermediate|advanced",
  "feedback": "one or two sentences of specific guidance"
}`)
	b.WriteString("\n\nScoring guide:\n")
	b.WriteString("- concept_score: fraction of key concepts demonstrated\n")
	b.WriteString("- approach_score: alignment with the correct solution approach\n")
	b.WriteString("- calculation_score: correctness of calculations attempted\n")
	b.WriteString("Respond with JSON only, no other text.")
	return b.String()
}
