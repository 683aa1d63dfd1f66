package problemtools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/abhinavg/jeetutor/internal/store"
)

// GetProblemTool handles the get_problem MCP tool. It returns the
// problem statement and hints without the solution, so the calling
// assistant cannot leak answers the student has not earned.
type GetProblemTool struct {
	problems store.ProblemRepo
}

// NewGetProblemTool creates a GetProblemTool backed by the problem bank.
func NewGetProblemTool(problems store.ProblemRepo) *GetProblemTool {
	return &GetProblemTool{problems: problems}
}

// Definition returns the MCP tool definition for registration.
func (t *GetProblemTool) Definition() mcp.Tool {
	return mcp.NewTool("get_problem",
		mcp.WithDescription(
			"Get a problem's question and hints without its solution. "+
				"Pass problem_id for a specific problem, or omit it to get "+
				"a random problem matching the topic/difficulty filters.",
		),
		mcp.WithString("problem_id",
			mcp.Description("Problem ID (e.g. 'rotation_001')"),
		),
		mcp.WithString("topic",
			mcp.Description("Topic filter for random selection (e.g. 'rotation')"),
		),
		mcp.WithString("difficulty",
			mcp.Description("Difficulty filter for random selection: easy, medium, or hard"),
		),
	)
}

// Handle processes the get_problem tool call.
func (t *GetProblemTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("problem_id", "")

	var (
		p   *store.Problem
		err error
	)
	if id != "" {
		p, err = t.problems.Get(ctx, id)
	} else {
		p, err = t.problems.Random(ctx,
			req.GetString("topic", ""),
			req.GetString("difficulty", ""))
	}
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("no matching problem found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("problem lookup failed: %v", err)), nil
	}

	// The solution and answer are deliberately withheld here.
	return jsonResult(map[string]any{
		"id":         p.ID,
		"topic":      p.Topic,
		"difficulty": p.Difficulty,
		"question":   p.Question,
		"hints":      p.Hints,
	})
}
