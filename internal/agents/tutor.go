package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhinavg/jeetutor/internal/llm"
	"github.com/abhinavg/jeetutor/internal/progress"
)

const tutorSystemPrompt = `You are a Socratic physics tutor for JEE preparation.

Your method:
- Guide students to discover answers through questions, never hand them the answer
- Ask one focused question at a time
- Acknowledge what the student got right before probing further
- When a student is stuck, narrow the question rather than revealing the step
- Use the problem's known quantities to anchor your questions
- Encourage experimentation and estimation

Never state the final answer or the complete solution. If the student asks
for the solution outright, redirect them to the concepts they have not yet
demonstrated.

Remember: you are a guide, not a solution provider. The goal is student
discovery and understanding.`

// SocraticTutor guides students through problems with questions instead
// of answers.
type SocraticTutor struct {
	provider llm.Provider
}

// NewSocraticTutor creates a tutor.
func NewSocraticTutor(provider llm.Provider) *SocraticTutor {
	return &SocraticTutor{provider: provider}
}

// Teach responds to a student message in the Socratic style.
func (t *SocraticTutor) Teach(ctx context.Context, message string, actx *Context) (string, error) {
	ctx = llm.WithPurpose(ctx, "socratic-teach")

	resp, err := t.provider.Generate(ctx, llm.Request{
		System: tutorSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildTutorPrompt(message, actx)},
		},
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("tutor generation: %w", err)
	}
	return resp.Text(), nil
}

// Hint returns a leveled hint for the problem. Levels 1-3 move from
// orientation to approach; anything else falls back to level 1.
func (t *SocraticTutor) Hint(problem string, level int) string {
	hints := map[int]string{
		1: "Let's start with the basics. What physical quantities are mentioned in the problem? What are you trying to find?",
		2: "Good thinking! Now, what physics principles or laws might apply here? Have you learned any formulas that connect these quantities?",
		3: "You're on the right track! If you write down the formula and identify all the known values, what would you need to calculate next?",
	}
	hint, ok := hints[level]
	if !ok {
		hint = hints[1]
	}
	if problem != "" {
		return fmt.Sprintf("Looking at this problem:\n%s\n\n%s", problem, hint)
	}
	return hint
}

func buildTutorPrompt(message string, actx *Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Student: %s\n", message)

	if actx != nil {
		if actx.Problem != "" {
			fmt.Fprintf(&b, "\nCurrent Problem: %s\n", actx.Problem)
		}
		if actx.Topic != "" {
			fmt.Fprintf(&b, "\nTopic: %s\n", actx.Topic)
		}
		if actx.StudentSolution != "" {
			fmt.Fprintf(&b, "\nStudent's Attempt: %s\n", actx.StudentSolution)
		}
		if len(actx.History) > 0 {
			b.WriteString("\nRecent Conversation:\n")
			for _, turn := range recentHistory(actx.History, 6) {
				role := "Student"
				if turn.Role == progress.RoleTutor {
					role = "You"
				}
				fmt.Fprintf(&b, "%s: %s\n", role, turn.Content)
			}
		}
	}
	return b.String()
}
