package problemtools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/abhinavg/jeetutor/internal/agents"
	"github.com/abhinavg/jeetutor/internal/llm"
	"github.com/abhinavg/jeetutor/internal/progress"
	"github.com/abhinavg/jeetutor/internal/store"
)

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	deps := Deps{
		Sessions: st.SessionRepo(time.Hour),
		Problems: st.ProblemRepo(),
		Tutor:    agents.NewSocraticTutor(llm.NewMockProvider()),
	}
	seedProblems(t, deps.Problems)
	return deps
}

func seedProblems(t *testing.T, problems store.ProblemRepo) {
	t.Helper()
	ctx := context.Background()
	seed := []store.Problem{
		{
			ID: "rot-1", Topic: "rotation", Difficulty: "medium",
			Question: "A disc spins up under a constant torque. Find alpha.",
			Solution: "alpha = tau / I", Answer: "4 rad/s²",
			Hints: []string{"What connects torque and angular acceleration?"},
		},
		{
			ID: "kin-1", Topic: "kinematics", Difficulty: "easy",
			Question: "A car moves at 20 m/s. How far does it travel in 5 s?",
			Answer:   "100 m",
		},
	}
	for i := range seed {
		if err := problems.Upsert(ctx, &seed[i]); err != nil {
			t.Fatalf("seed problem %s: %v", seed[i].ID, err)
		}
	}
}

func toolReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("tool result has no text content")
	return ""
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, v any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), v); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
}

func TestGetProblem_ByID(t *testing.T) {
	deps := newTestDeps(t)
	tool := NewGetProblemTool(deps.Problems)

	result, err := tool.Handle(context.Background(), toolReq(map[string]any{
		"problem_id": "rot-1",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var body map[string]any
	decodeResult(t, result, &body)
	if body["id"] != "rot-1" {
		t.Errorf("id = %v, want rot-1", body["id"])
	}
	if _, leaked := body["solution"]; leaked {
		t.Error("get_problem must not expose the solution")
	}
	if _, leaked := body["answer"]; leaked {
		t.Error("get_problem must not expose the answer")
	}
}

func TestGetProblem_RandomWithFilters(t *testing.T) {
	deps := newTestDeps(t)
	tool := NewGetProblemTool(deps.Problems)

	result, err := tool.Handle(context.Background(), toolReq(map[string]any{
		"topic": "kinematics",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var body map[string]any
	decodeResult(t, result, &body)
	if body["id"] != "kin-1" {
		t.Errorf("id = %v, want kin-1", body["id"])
	}
}

func TestGetProblem_NotFound(t *testing.T) {
	deps := newTestDeps(t)
	tool := NewGetProblemTool(deps.Problems)

	result, err := tool.Handle(context.Background(), toolReq(map[string]any{
		"problem_id": "missing",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for an unknown problem")
	}
}

func TestSearchProblems_QueryAndFilters(t *testing.T) {
	deps := newTestDeps(t)
	tool := NewSearchProblemsTool(deps.Problems)
	ctx := context.Background()

	result, err := tool.Handle(ctx, toolReq(map[string]any{"query": "torque"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	var body struct {
		Count    int `json:"count"`
		Problems []struct {
			ID string `json:"id"`
		} `json:"problems"`
	}
	decodeResult(t, result, &body)
	if body.Count != 1 || body.Problems[0].ID != "rot-1" {
		t.Fatalf("query search = %+v, want single rot-1", body)
	}

	result, err = tool.Handle(ctx, toolReq(map[string]any{"difficulty": "easy"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	decodeResult(t, result, &body)
	if body.Count != 1 || body.Problems[0].ID != "kin-1" {
		t.Fatalf("filter search = %+v, want single kin-1", body)
	}
}

func TestListTopics(t *testing.T) {
	deps := newTestDeps(t)
	tool := NewListTopicsTool(deps.Problems)

	result, err := tool.Handle(context.Background(), toolReq(nil))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var body struct {
		Total  int            `json:"total_problems"`
		Topics map[string]int `json:"topics"`
	}
	decodeResult(t, result, &body)
	if body.Total != 2 {
		t.Errorf("total_problems = %d, want 2", body.Total)
	}
	if body.Topics["rotation"] != 1 || body.Topics["kinematics"] != 1 {
		t.Errorf("topics = %v", body.Topics)
	}
}

func TestGetHint_EscalatesAndCounts(t *testing.T) {
	deps := newTestDeps(t)
	tool := NewGetHintTool(deps.Sessions, deps.Problems, deps.Tutor)
	ctx := context.Background()

	sess, err := deps.Sessions.Create(ctx, "s1", "rotation")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := deps.Sessions.SetProblem(ctx, sess.ID, "rot-1"); err != nil {
		t.Fatalf("set problem: %v", err)
	}

	var body struct {
		Level int    `json:"level"`
		Hint  string `json:"hint"`
	}
	for want := 1; want <= 3; want++ {
		result, herr := tool.Handle(ctx, toolReq(map[string]any{"session_id": sess.ID}))
		if herr != nil {
			t.Fatalf("Handle: %v", herr)
		}
		decodeResult(t, result, &body)
		if body.Level != want {
			t.Fatalf("hint level = %d, want %d", body.Level, want)
		}
		if !strings.Contains(body.Hint, "disc spins up") {
			t.Errorf("hint should quote the problem, got %q", body.Hint)
		}
	}

	// A fourth request stays capped at the deepest level.
	result, err := tool.Handle(ctx, toolReq(map[string]any{"session_id": sess.ID}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	decodeResult(t, result, &body)
	if body.Level != 3 {
		t.Errorf("capped hint level = %d, want 3", body.Level)
	}

	got, err := deps.Sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.HintsProvided != 4 {
		t.Errorf("hints_provided = %d, want 4", got.HintsProvided)
	}
}

func TestGetHint_UnknownSession(t *testing.T) {
	deps := newTestDeps(t)
	tool := NewGetHintTool(deps.Sessions, deps.Problems, deps.Tutor)

	result, err := tool.Handle(context.Background(), toolReq(map[string]any{
		"session_id": "missing",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for an unknown session")
	}
}

func TestCheckProgress(t *testing.T) {
	deps := newTestDeps(t)
	tool := NewCheckProgressTool(deps.Sessions)
	ctx := context.Background()

	sess, err := deps.Sessions.Create(ctx, "s1", "rotation")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	tracker := progress.NewLightweightTracker()
	state := tracker.Update(progress.NewState(),
		"I think torque causes angular acceleration because tau = I alpha", nil)
	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	if err := deps.Sessions.SaveProgressState(ctx, sess.ID, raw); err != nil {
		t.Fatalf("save state: %v", err)
	}

	result, herr := tool.Handle(ctx, toolReq(map[string]any{"session_id": sess.ID}))
	if herr != nil {
		t.Fatalf("Handle: %v", herr)
	}

	var body struct {
		MessageCount   int      `json:"message_count"`
		Keywords       []string `json:"keywords_mentioned"`
		HeuristicScore int      `json:"heuristic_score"`
	}
	decodeResult(t, result, &body)
	if body.MessageCount != 1 {
		t.Errorf("message_count = %d, want 1", body.MessageCount)
	}
	if body.HeuristicScore != state.HeuristicScore {
		t.Errorf("heuristic_score = %d, want %d", body.HeuristicScore, state.HeuristicScore)
	}
	found := false
	for _, kw := range body.Keywords {
		if kw == "torque" {
			found = true
		}
	}
	if !found {
		t.Errorf("keywords = %v, want torque present", body.Keywords)
	}
}

func TestCheckProgress_FreshSession(t *testing.T) {
	deps := newTestDeps(t)
	tool := NewCheckProgressTool(deps.Sessions)
	ctx := context.Background()

	sess, err := deps.Sessions.Create(ctx, "s1", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	result, herr := tool.Handle(ctx, toolReq(map[string]any{"session_id": sess.ID}))
	if herr != nil {
		t.Fatalf("Handle: %v", herr)
	}

	var body struct {
		MessageCount   int `json:"message_count"`
		HeuristicScore int `json:"heuristic_score"`
	}
	decodeResult(t, result, &body)
	if body.MessageCount != 0 || body.HeuristicScore != 0 {
		t.Errorf("fresh session tally = %+v, want zeros", body)
	}
}

func TestNewServer_RegistersTools(t *testing.T) {
	deps := newTestDeps(t)
	if s := NewServer(deps); s == nil {
		t.Fatal("NewServer returned nil")
	}
}
