package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhinavg/jeetutor/internal/app"
	"github.com/abhinavg/jeetutor/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index <problems.json>",
	Short: "Load a problems JSON file into the problem bank",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	// Indexing is a pure store operation; no provider needed.
	a := app.NewWithProvider(st, nil, app.Config{}, nil)

	n, err := a.IndexProblems(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d problems from %s\n", n, args[0])
	return nil
}
