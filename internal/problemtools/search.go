package problemtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/abhinavg/jeetutor/internal/store"
)

const defaultSearchLimit = 10

// SearchProblemsTool handles the search_problems MCP tool.
type SearchProblemsTool struct {
	problems store.ProblemRepo
}

// NewSearchProblemsTool creates a SearchProblemsTool.
func NewSearchProblemsTool(problems store.ProblemRepo) *SearchProblemsTool {
	return &SearchProblemsTool{problems: problems}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchProblemsTool) Definition() mcp.Tool {
	return mcp.NewTool("search_problems",
		mcp.WithDescription(
			"Search the problem bank. Use query to match question text, "+
				"or topic/difficulty to browse by category.",
		),
		mcp.WithString("query",
			mcp.Description("Keywords to match against question text"),
		),
		mcp.WithString("topic",
			mcp.Description("Topic filter (e.g. 'kinematics')"),
		),
		mcp.WithString("difficulty",
			mcp.Description("Difficulty filter: easy, medium, or hard"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default 10)"),
		),
	)
}

// Handle processes the search_problems tool call.
func (t *SearchProblemsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	topic := req.GetString("topic", "")
	difficulty := req.GetString("difficulty", "")
	limit := req.GetInt("limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var (
		found []store.Problem
		err   error
	)
	if query != "" {
		found, err = t.problems.Search(ctx, query, limit)
	} else {
		found, err = t.problems.Find(ctx, topic, difficulty, limit)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	results := make([]map[string]any, 0, len(found))
	for _, p := range found {
		results = append(results, map[string]any{
			"id":         p.ID,
			"topic":      p.Topic,
			"difficulty": p.Difficulty,
			"question":   truncate(p.Question, 200),
		})
	}
	return jsonResult(map[string]any{
		"count":    len(results),
		"problems": results,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
