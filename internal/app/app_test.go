package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abhinavg/jeetutor/internal/llm"
	"github.com/abhinavg/jeetutor/internal/progress"
	"github.com/abhinavg/jeetutor/internal/store"
)

func newTestApp(t *testing.T, mock *llm.MockProvider) *App {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewWithProvider(st, mock, Config{}, nil)
}

func TestChat_CreatesSessionAndPersistsExchange(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage("What do you already know about torque?")},
	)
	a := newTestApp(t, mock)
	ctx := context.Background()

	resp, err := a.Chat(ctx, ChatRequest{
		StudentID: "student-1",
		Message:   "Help me understand torque",
		Topic:     "rotation",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.SessionID)
	require.Equal(t, "socratic_tutor", resp.AgentUsed)
	require.Equal(t, 1, resp.Metadata.InteractionCount)
	require.Equal(t, 1, resp.Metadata.AgentUsage["socratic_tutor"])

	// Both sides of the exchange are persisted.
	turns, err := a.Sessions.History(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "student", turns[0].Role)
	require.Equal(t, "tutor", turns[1].Role)

	// The profile is created on first contact.
	_, err = a.Profiles.Get(ctx, "student-1")
	require.NoError(t, err)
}

func TestChat_ContinuesSessionAndAccumulatesState(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage("Good question.")},
		llm.MockResponse{Content: json.RawMessage("Keep going.")},
	)
	a := newTestApp(t, mock)
	ctx := context.Background()

	first, err := a.Chat(ctx, ChatRequest{StudentID: "s1", Message: "Help me with momentum"})
	require.NoError(t, err)

	second, err := a.Chat(ctx, ChatRequest{
		StudentID: "s1",
		SessionID: first.SessionID,
		Message:   "I think force equals mass times acceleration because F = ma",
	})
	require.NoError(t, err)
	require.Equal(t, first.SessionID, second.SessionID)
	require.Equal(t, 2, second.Metadata.InteractionCount)

	sess, err := a.Sessions.Get(ctx, first.SessionID)
	require.NoError(t, err)

	var state progress.State
	require.NoError(t, json.Unmarshal(sess.ProgressState, &state))
	require.Equal(t, 2, state.MessageCount)
	require.Contains(t, state.KeywordsMentioned, "momentum")
	require.Contains(t, state.KeywordsMentioned, "force")
	require.Equal(t, 1, state.FormulaAttemptCount)
}

func TestChat_ValidatesRequest(t *testing.T) {
	a := newTestApp(t, llm.NewMockProvider())

	_, err := a.Chat(context.Background(), ChatRequest{Message: "hi"})
	require.Error(t, err)

	_, err = a.Chat(context.Background(), ChatRequest{StudentID: "s1"})
	require.Error(t, err)
}

func TestChat_AttachesProblemGroundTruth(t *testing.T) {
	verdict := `{"concept_score": 80, "approach_score": 80, "calculation_score": 80,
		"covered_concepts": ["torque"], "missing_concepts": [],
		"understanding_level": "advanced", "feedback": "Solid work."}`
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage("What does the torque depend on?")},
		llm.MockResponse{Content: json.RawMessage("- discussed torque")},
		llm.MockResponse{Content: json.RawMessage(verdict)},
	)
	a := newTestApp(t, mock)
	ctx := context.Background()

	require.NoError(t, a.Problems.Upsert(ctx, &store.Problem{
		ID:            "rot-1",
		Topic:         "rotation",
		Difficulty:    "medium",
		Question:      "A disc spins up under a constant torque.",
		Answer:        "alpha = 4 rad/s²",
		KeyConcepts:   []string{"torque", "moment of inertia"},
		SolutionSteps: []string{"Write I", "Apply tau = I alpha"},
	}))

	// One engaged message puts the tally in the borderline band, so
	// the solution request goes through deep evaluation, which lands
	// above the full threshold.
	first, err := a.Chat(ctx, ChatRequest{
		StudentID: "s1",
		Message:   "Using the equation F = ma, how does force relate to acceleration here?",
		ProblemID: "rot-1",
	})
	require.NoError(t, err)

	resp, err := a.Chat(ctx, ChatRequest{
		StudentID: "s1",
		SessionID: first.SessionID,
		Message:   "solution please",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Progress)
	require.Equal(t, 80, resp.Progress.OverallProgress)
	require.Contains(t, resp.Response, "alpha = 4 rad/s²")

	sess, err := a.Sessions.Get(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Equal(t, "rot-1", sess.ProblemID)
}

func TestProgress_HeuristicPath(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage("ok")},
	)
	a := newTestApp(t, mock)
	ctx := context.Background()

	resp, err := a.Chat(ctx, ChatRequest{StudentID: "s1", Message: "hi"})
	require.NoError(t, err)

	// One plain message leaves the score below the trigger floor.
	eval, err := a.Progress(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Equal(t, progress.MethodHeuristic, eval.Method)
	require.Equal(t, 1, mock.CallCount(), "progress must not trigger extra LLM calls")
}

func TestProgress_UnknownSession(t *testing.T) {
	a := newTestApp(t, llm.NewMockProvider())

	_, err := a.Progress(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestIndexProblems(t *testing.T) {
	a := newTestApp(t, llm.NewMockProvider())
	ctx := context.Background()

	payload := `{
		"problems": [
			{
				"id": "kinematics_001",
				"topic": "Kinematics",
				"difficulty": "easy",
				"question": "A car moves at 20 m/s. How far in 5 s?",
				"solution": "d = vt = 100 m",
				"hints": ["Which formula relates distance, velocity, and time?"],
				"answer": "100 m"
			},
			{
				"subject": "dynamics",
				"level": "medium",
				"problem": "A 5 kg block is pushed with 20 N. Find a.",
				"hint": "Newton's second law",
				"correct_answer": "4 m/s²"
			},
			{
				"id": "broken",
				"topic": "optics"
			}
		]
	}`
	path := filepath.Join(t.TempDir(), "problems_index.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	n, err := a.IndexProblems(ctx, path)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	p, err := a.Problems.Get(ctx, "kinematics_001")
	require.NoError(t, err)
	require.Equal(t, "kinematics", p.Topic)
	require.Equal(t, "100 m", p.Answer)

	generated, err := a.Problems.Find(ctx, "dynamics", "", 0)
	require.NoError(t, err)
	require.Len(t, generated, 1)
	require.Equal(t, "prob_problems_index_001", generated[0].ID)
	require.Equal(t, []string{"Newton's second law"}, generated[0].Hints)
}
