package progress

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/abhinavg/jeetutor/internal/llm"
)

// Sentinel summaries used when there is nothing to summarize or the
// model call failed. Both are valid comparator input.
const (
	noSubstantiveResponses = "Student has not provided substantive responses yet."
	summaryUnavailable     = "Unable to summarize conversation."
)

// controlTokens are bare commands to the tutor, not evidence of
// understanding. Turns consisting solely of one of these are excluded
// from summarization. Matched case-insensitively against the whole turn.
var controlTokens = map[string]struct{}{
	"hint":            {},
	"solution":        {},
	"solution please": {},
}

// SummarizerConfig holds generation settings for conversation summaries.
type SummarizerConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultSummarizerConfig returns the settings the service ships with.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		MaxTokens:   400,
		Temperature: 0.3,
	}
}

// Summarizer reduces a raw conversation to a structured summary of the
// student's demonstrated understanding.
type Summarizer struct {
	provider llm.Provider
	cfg      SummarizerConfig
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(provider llm.Provider, cfg SummarizerConfig) *Summarizer {
	return &Summarizer{provider: provider, cfg: cfg}
}

// Summarize returns a bullet summary of the student's understanding.
// It never fails: with no substantive student turns it returns a fixed
// sentinel, and a model failure degrades to a placeholder reported
// through the second return value.
func (s *Summarizer) Summarize(ctx context.Context, history []Turn) (string, *EvalError) {
	messages := studentMessages(history)
	if len(messages) == 0 {
		return noSubstantiveResponses, nil
	}

	ctx = llm.WithPurpose(ctx, "summarize-conversation")

	resp, err := s.provider.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildSummaryPrompt(messages)},
		},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return summaryUnavailable, &EvalError{Stage: "summarize", Err: err}
	}

	return resp.Text(), nil
}

// studentMessages filters the history to student-authored turns,
// dropping bare control commands.
func studentMessages(history []Turn) []string {
	var out []string
	for _, turn := range history {
		if turn.Role != RoleStudent {
			continue
		}
		if _, ok := controlTokens[strings.ToLower(turn.Content)]; ok {
			continue
		}
		out = append(out, turn.Content)
	}
	return out
}

func buildSummaryPrompt(messages []string) string {
	encoded, _ := json.MarshalIndent(messages, "", "  ")

	var b strings.Builder
	b.WriteString("Summarize the student's physics understanding from their messages.\n\n")
	b.WriteString("Student Messages:\n")
	b.Write(encoded)
	b.WriteString("\n\nProvide a concise summary covering:\n")
	b.WriteString("1. Physics concepts/theorems mentioned\n")
	b.WriteString("2. Formulas or equations attempted\n")
	b.WriteString("3. Relationships or principles identified\n")
	b.WriteString("4. Understanding demonstrated through explanations\n")
	b.WriteString("5. Calculations or derivations attempted\n\n")
	b.WriteString("Format: Structured bullet points (not conversational).\n")
	b.WriteString("Keep it brief but comprehensive.")
	return b.String()
}
