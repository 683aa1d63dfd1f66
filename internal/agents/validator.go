package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhinavg/jeetutor/internal/llm"
)

// Validation verdicts.
const (
	VerdictCorrect          = "correct"
	VerdictPartiallyCorrect = "partially_correct"
	VerdictIncorrect        = "incorrect"
)

// Validation is the structured outcome of checking a student solution.
type Validation struct {
	Verdict  string   `json:"verdict"`
	Issues   []string `json:"issues"`
	Feedback string   `json:"feedback"`
}

// validationSchema defines the JSON schema for solution validation
// responses.
var validationSchema = &llm.Schema{
	Name:        "solution-validation",
	Description: "Verdict on a student's physics solution",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"verdict": map[string]any{
				"type":        "string",
				"enum":        []any{VerdictCorrect, VerdictPartiallyCorrect, VerdictIncorrect},
				"description": "Overall judgement of the student's solution",
			},
			"issues": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "string",
				},
				"description": "Specific errors or gaps found, empty when correct",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "Constructive feedback explaining the verdict, without revealing unattempted steps",
			},
		},
		"required":             []any{"verdict", "issues", "feedback"},
		"additionalProperties": false,
	},
}

const validatorSystemPrompt = `You are a physics solution validator for JEE preparation.

Check the student's solution against the problem:
- Verify the physics principles applied are correct
- Verify each calculation step, including units and signs
- Verify the final answer

Be precise about what is wrong and where, but never write out the correct
solution yourself. Point at the step, not past it.`

// SolutionValidator checks a student's worked solution against a
// problem using schema-constrained output.
type SolutionValidator struct {
	provider llm.Provider
}

// NewSolutionValidator creates a validator.
func NewSolutionValidator(provider llm.Provider) *SolutionValidator {
	return &SolutionValidator{provider: provider}
}

// Validate checks the student solution and returns a structured verdict.
func (v *SolutionValidator) Validate(ctx context.Context, problem, studentSolution string, actx *Context) (*Validation, error) {
	ctx = llm.WithPurpose(ctx, "validate-solution")

	resp, err := v.provider.Generate(ctx, llm.Request{
		System: validatorSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildValidationPrompt(problem, studentSolution, actx)},
		},
		Schema:      validationSchema,
		MaxTokens:   800,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("validation generation: %w", err)
	}

	var result Validation
	if err := json.Unmarshal(resp.Content, &result); err != nil {
		return nil, fmt.Errorf("parse validation response: %w", err)
	}
	if result.Issues == nil {
		result.Issues = []string{}
	}
	return &result, nil
}

// Render formats a validation for the student.
func (val *Validation) Render() string {
	var b strings.Builder
	switch val.Verdict {
	case VerdictCorrect:
		b.WriteString("Your solution checks out. ")
	case VerdictPartiallyCorrect:
		b.WriteString("You're partway there. ")
	default:
		b.WriteString("Not quite right yet. ")
	}
	b.WriteString(val.Feedback)
	if len(val.Issues) > 0 {
		b.WriteString("\n\nThings to revisit:")
		for _, issue := range val.Issues {
			b.WriteString("\n- ")
			b.WriteString(issue)
		}
	}
	return b.String()
}

func buildValidationPrompt(problem, studentSolution string, actx *Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem:\n%s\n\nStudent's Solution:\n%s\n", problem, studentSolution)
	if actx != nil && actx.GroundTruth != nil && actx.GroundTruth.FinalAnswer != "" {
		fmt.Fprintf(&b, "\nVerified Final Answer (do not reveal): %s\n", actx.GroundTruth.FinalAnswer)
	}
	b.WriteString("\nValidate the solution.")
	return b.String()
}
