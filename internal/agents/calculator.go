package agents

import (
	"context"
	"fmt"

	"github.com/abhinavg/jeetutor/internal/llm"
)

const calculatorSystemPrompt = `You are a physics calculator for JEE problems.

Given a computation request:
- Identify the quantities and the governing formula
- Substitute values explicitly, carrying units through every step
- State the final answer with correct units and sensible precision

No teaching, no questions back. Show the work, give the number.`

// Calculator answers direct computation requests without any teaching.
type Calculator struct {
	provider llm.Provider
}

// NewCalculator creates a calculator.
func NewCalculator(provider llm.Provider) *Calculator {
	return &Calculator{provider: provider}
}

// Calculate solves a plain numeric request.
func (c *Calculator) Calculate(ctx context.Context, request string) (string, error) {
	ctx = llm.WithPurpose(ctx, "calculate")

	resp, err := c.provider.Generate(ctx, llm.Request{
		System: calculatorSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: request},
		},
		MaxTokens:   600,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("calculator generation: %w", err)
	}
	return resp.Text(), nil
}
