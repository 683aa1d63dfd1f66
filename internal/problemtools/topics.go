package problemtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/abhinavg/jeetutor/internal/store"
)

// ListTopicsTool handles the list_topics MCP tool.
type ListTopicsTool struct {
	problems store.ProblemRepo
}

// NewListTopicsTool creates a ListTopicsTool.
func NewListTopicsTool(problems store.ProblemRepo) *ListTopicsTool {
	return &ListTopicsTool{problems: problems}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTopicsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_topics",
		mcp.WithDescription("List the problem bank's topics with problem counts."),
	)
}

// Handle processes the list_topics tool call.
func (t *ListTopicsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.problems.Topics(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("topic listing failed: %v", err)), nil
	}

	total := 0
	topics := make(map[string]int, len(stats))
	for _, s := range stats {
		topics[s.Topic] = s.Count
		total += s.Count
	}
	return jsonResult(map[string]any{
		"total_problems": total,
		"topics":         topics,
	})
}
