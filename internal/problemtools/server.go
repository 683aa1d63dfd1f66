// Package problemtools exposes the problem bank and session progress
// over MCP so external assistants can pull problems, hints, and
// progress without going through the HTTP API.
package problemtools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/abhinavg/jeetutor/internal/agents"
	"github.com/abhinavg/jeetutor/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the services the tools operate on.
type Deps struct {
	Sessions store.SessionRepo
	Problems store.ProblemRepo
	Tutor    *agents.SocraticTutor
}

// NewServer creates the MCP server with all problem-bank tools
// registered. This is the composition root for the MCP surface.
func NewServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"jeetutor-problems",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	getProblem := NewGetProblemTool(deps.Problems)
	s.AddTool(getProblem.Definition(), getProblem.Handle)

	search := NewSearchProblemsTool(deps.Problems)
	s.AddTool(search.Definition(), search.Handle)

	topics := NewListTopicsTool(deps.Problems)
	s.AddTool(topics.Definition(), topics.Handle)

	hint := NewGetHintTool(deps.Sessions, deps.Problems, deps.Tutor)
	s.AddTool(hint.Definition(), hint.Handle)

	checkProgress := NewCheckProgressTool(deps.Sessions)
	s.AddTool(checkProgress.Definition(), checkProgress.Handle)

	return s
}

const serverInstructions = `You have access to a JEE physics problem bank.

Use get_problem or search_problems to pull problems for a student.
Problems are returned without solutions: guide the student toward the
answer instead of revealing it. When the student is stuck, use get_hint
to fetch the next leveled hint for their session, and check_progress to
see how far they have worked through the current problem.`

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
