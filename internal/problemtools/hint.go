package problemtools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/abhinavg/jeetutor/internal/agents"
	"github.com/abhinavg/jeetutor/internal/store"
)

const maxHintLevel = 3

// GetHintTool handles the get_hint MCP tool. Hints escalate with each
// request and are counted against the session.
type GetHintTool struct {
	sessions store.SessionRepo
	problems store.ProblemRepo
	tutor    *agents.SocraticTutor
}

// NewGetHintTool creates a GetHintTool.
func NewGetHintTool(sessions store.SessionRepo, problems store.ProblemRepo, tutor *agents.SocraticTutor) *GetHintTool {
	return &GetHintTool{sessions: sessions, problems: problems, tutor: tutor}
}

// Definition returns the MCP tool definition for registration.
func (t *GetHintTool) Definition() mcp.Tool {
	return mcp.NewTool("get_hint",
		mcp.WithDescription(
			"Get the next leveled hint for a tutoring session. Hints move "+
				"from orientation to approach across three levels and count "+
				"against the session's hint budget.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Tutoring session ID"),
		),
	)
}

// Handle processes the get_hint tool call.
func (t *GetHintTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("session_id", "")
	if id == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	sess, err := t.sessions.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session lookup failed: %v", err)), nil
	}

	question := ""
	if sess.ProblemID != "" {
		p, perr := t.problems.Get(ctx, sess.ProblemID)
		if perr == nil {
			question = p.Question
		}
	}

	level := sess.HintsProvided + 1
	if level > maxHintLevel {
		level = maxHintLevel
	}
	hint := t.tutor.Hint(question, level)

	if err := t.sessions.IncrementHints(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("hint accounting failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"session_id": id,
		"level":      level,
		"hint":       hint,
	})
}
