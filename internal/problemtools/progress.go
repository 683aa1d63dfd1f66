package problemtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/abhinavg/jeetutor/internal/progress"
	"github.com/abhinavg/jeetutor/internal/store"
)

// CheckProgressTool handles the check_progress MCP tool. It reports the
// session's stored lightweight tally without any LLM call.
type CheckProgressTool struct {
	sessions store.SessionRepo
}

// NewCheckProgressTool creates a CheckProgressTool.
func NewCheckProgressTool(sessions store.SessionRepo) *CheckProgressTool {
	return &CheckProgressTool{sessions: sessions}
}

// Definition returns the MCP tool definition for registration.
func (t *CheckProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("check_progress",
		mcp.WithDescription(
			"Check a tutoring session's heuristic progress tally: message "+
				"count, physics keywords mentioned, formula attempts, and "+
				"the current progress score.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Tutoring session ID"),
		),
	)
}

// Handle processes the check_progress tool call.
func (t *CheckProgressTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	state := progress.NewState()
	if len(sess.ProgressState) > 0 {
		if uerr := json.Unmarshal(sess.ProgressState, state); uerr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stored progress state is corrupt: %v", uerr)), nil
		}
	}

	return jsonResult(map[string]any{
		"session_id":         id,
		"problem_id":         sess.ProblemID,
		"message_count":      state.MessageCount,
		"keywords_mentioned": state.KeywordsMentioned,
		"formula_attempts":   state.FormulaAttemptCount,
		"questions_asked":    state.QuestionCount,
		"heuristic_score":    state.HeuristicScore,
		"hints_provided":     sess.HintsProvided,
	})
}
