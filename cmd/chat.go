package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhinavg/jeetutor/internal/app"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the tutor from the terminal",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().String("student", "local", "Student ID for the session")
	chatCmd.Flags().String("topic", "", "Topic to study")
	chatCmd.Flags().String("problem", "", "Problem ID to work on")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}

	a, err := app.New(ctx, app.Config{DBPath: dbPath}, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	studentID, _ := cmd.Flags().GetString("student")
	topic, _ := cmd.Flags().GetString("topic")
	problemID, _ := cmd.Flags().GetString("problem")

	fmt.Println("JEE physics tutor. Type your question, or 'quit' to exit.")

	var sessionID string
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		resp, cerr := a.Chat(ctx, app.ChatRequest{
			StudentID: studentID,
			SessionID: sessionID,
			Message:   line,
			Topic:     topic,
			ProblemID: problemID,
		})
		if cerr != nil {
			fmt.Fprintln(os.Stderr, "error:", cerr)
			continue
		}
		sessionID = resp.SessionID
		problemID = "" // attached on first exchange

		fmt.Printf("\n[%s] %s\n\n", resp.AgentUsed, resp.Response)
		if resp.Progress != nil {
			fmt.Printf("progress: %d%% (%s)\n\n",
				resp.Progress.OverallProgress, resp.Progress.UnderstandingLevel)
		}
	}
	return scanner.Err()
}
