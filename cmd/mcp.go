package cmd

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/abhinavg/jeetutor/internal/agents"
	"github.com/abhinavg/jeetutor/internal/app"
	"github.com/abhinavg/jeetutor/internal/llm"
	"github.com/abhinavg/jeetutor/internal/problemtools"
	"github.com/abhinavg/jeetutor/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the problem-bank MCP server (stdio transport)",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	// Hints come from fixed tutor templates, so the MCP surface works
	// without LLM credentials. When a provider is configured it is
	// still wired so future tools can generate.
	provider, perr := llm.NewProviderFromEnv(cmd.Context(), st.EventRepo())
	if perr != nil {
		provider = llm.NewMockProvider()
	}

	s := problemtools.NewServer(problemtools.Deps{
		Sessions: st.SessionRepo(app.DefaultSessionTimeout),
		Problems: st.ProblemRepo(),
		Tutor:    agents.NewSocraticTutor(provider),
	})
	return mcpserver.ServeStdio(s)
}
