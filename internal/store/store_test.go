package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := s.SessionRepo(time.Hour)

	sess, err := repo.Create(ctx, "student-1", "rotation")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, err := repo.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "student-1", got.StudentID)
	require.Equal(t, "rotation", got.Topic)

	require.NoError(t, repo.SetProblem(ctx, sess.ID, "rot-1"))
	require.NoError(t, repo.IncrementHints(ctx, sess.ID))

	state := json.RawMessage(`{"message_count":3}`)
	require.NoError(t, repo.SaveProgressState(ctx, sess.ID, state))

	require.NoError(t, repo.AppendTurn(ctx, Turn{SessionID: sess.ID, Role: "student", Content: "What is torque?"}))
	require.NoError(t, repo.AppendTurn(ctx, Turn{SessionID: sess.ID, Role: "tutor", Agent: "socratic_tutor", Content: "What causes rotation?"}))

	turns, err := repo.History(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "What is torque?", turns[0].Content)
	require.Equal(t, "socratic_tutor", turns[1].Agent)

	require.NoError(t, repo.RecordAgentUsage(ctx, sess.ID, "socratic_tutor"))
	require.NoError(t, repo.RecordAgentUsage(ctx, sess.ID, "socratic_tutor"))
	usage, err := repo.AgentUsage(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, 2, usage["socratic_tutor"])

	got, err = repo.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "rot-1", got.ProblemID)
	require.Equal(t, 1, got.HintsProvided)
	require.JSONEq(t, string(state), string(got.ProgressState))

	list, err := repo.ListByStudent(ctx, "student-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSessionGet_Unknown(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo(time.Hour)

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := s.SessionRepo(time.Nanosecond)

	sess, err := repo.Create(ctx, "student-1", "")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, err = repo.Get(ctx, sess.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionCleanup(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	short := s.SessionRepo(time.Nanosecond)
	_, err := short.Create(ctx, "student-1", "")
	require.NoError(t, err)
	_, err = short.Create(ctx, "student-2", "")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	removed, err := short.Cleanup(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)
}

func TestProfileMasteryLevels(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := s.ProfileRepo()

	p, err := repo.Ensure(ctx, "student-1")
	require.NoError(t, err)
	require.Equal(t, "medium", p.Preferences["difficulty_level"])

	// 8 correct out of 10 crosses the advanced threshold.
	for i := 0; i < 10; i++ {
		require.NoError(t, repo.RecordAttempt(ctx, "student-1", "rotation", i < 8))
	}

	p, err = repo.Get(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, p.Mastery, 1)
	require.Equal(t, "advanced", p.Mastery[0].Level)
	require.Equal(t, 10, p.Mastery[0].ProblemsAttempted)
	require.Equal(t, 8, p.Mastery[0].ProblemsCorrect)
}

func TestProfileMastery_SmallSampleKeepsLevel(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := s.ProfileRepo()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.RecordAttempt(ctx, "student-1", "kinematics", true))
	}

	p, err := repo.Get(ctx, "student-1")
	require.NoError(t, err)
	require.Equal(t, "beginner", p.Mastery[0].Level)
}

func TestProfileSetAreas(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := s.ProfileRepo()

	require.NoError(t, repo.SetAreas(ctx, "student-1", "rotation", []string{"parallel axis"}, nil))

	p, err := repo.Get(ctx, "student-1")
	require.NoError(t, err)
	require.Equal(t, []string{"parallel axis"}, p.Mastery[0].WeakAreas)
	require.Empty(t, p.Mastery[0].StrongAreas)
}

func testProblem(id, topic, difficulty string) *Problem {
	return &Problem{
		ID:            id,
		Topic:         topic,
		Difficulty:    difficulty,
		Question:      "A disc of mass M and radius R spins about its axis.",
		Solution:      "Apply tau = I alpha with I = MR²/2.",
		Answer:        "alpha = 2tau/(MR²)",
		Hints:         []string{"What is the moment of inertia of a disc?"},
		KeyConcepts:   []string{"torque", "moment of inertia"},
		SolutionSteps: []string{"Write I for the disc", "Apply tau = I alpha"},
	}
}

func TestProblemBank(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := s.ProblemRepo()

	require.NoError(t, repo.Upsert(ctx, testProblem("rot-1", "Rotation", "Medium")))
	require.NoError(t, repo.Upsert(ctx, testProblem("rot-2", "rotation", "hard")))
	require.NoError(t, repo.Upsert(ctx, testProblem("kin-1", "kinematics", "easy")))

	got, err := repo.Get(ctx, "rot-1")
	require.NoError(t, err)
	require.Equal(t, "rotation", got.Topic, "topic is normalized to lower case")
	require.Equal(t, []string{"torque", "moment of inertia"}, got.KeyConcepts)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	byTopic, err := repo.Find(ctx, "ROTATION", "", 0)
	require.NoError(t, err)
	require.Len(t, byTopic, 2)

	byBoth, err := repo.Find(ctx, "rotation", "hard", 0)
	require.NoError(t, err)
	require.Len(t, byBoth, 1)
	require.Equal(t, "rot-2", byBoth[0].ID)

	found, err := repo.Search(ctx, "disc of mass", 0)
	require.NoError(t, err)
	require.Len(t, found, 3)

	random, err := repo.Random(ctx, "kinematics", "")
	require.NoError(t, err)
	require.Equal(t, "kin-1", random.ID)

	_, err = repo.Random(ctx, "optics", "")
	require.ErrorIs(t, err, ErrNotFound)

	topics, err := repo.Topics(ctx)
	require.NoError(t, err)
	require.Equal(t, []TopicStat{{Topic: "kinematics", Count: 1}, {Topic: "rotation", Count: 2}}, topics)
}

func TestProblemUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := s.ProblemRepo()

	require.NoError(t, repo.Upsert(ctx, testProblem("rot-1", "rotation", "medium")))

	updated := testProblem("rot-1", "rotation", "hard")
	updated.Answer = "revised"
	require.NoError(t, repo.Upsert(ctx, updated))

	got, err := repo.Get(ctx, "rot-1")
	require.NoError(t, err)
	require.Equal(t, "hard", got.Difficulty)
	require.Equal(t, "revised", got.Answer)
}

func TestEventAppend(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := s.EventRepo()

	err := repo.AppendLLMRequest(ctx, LLMRequestEvent{
		Provider:     "gemini",
		Model:        "gemini-2.5-flash",
		Purpose:      "summarize-conversation",
		InputTokens:  120,
		OutputTokens: 45,
		LatencyMs:    830,
		Success:      true,
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM llm_request_events`).Scan(&count))
	require.Equal(t, 1, count)
}
