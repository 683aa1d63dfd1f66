package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abhinavg/jeetutor/internal/app"
	"github.com/abhinavg/jeetutor/internal/llm"
	"github.com/abhinavg/jeetutor/internal/store"
)

func newTestServer(t *testing.T, mock *llm.MockProvider) (*httptest.Server, *app.App) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	a := app.NewWithProvider(st, mock, app.Config{}, nil)
	srv := httptest.NewServer(NewHandler(a, nil).Router())
	t.Cleanup(srv.Close)
	return srv, a
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewMockProvider())

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "mock", body["model"])
}

func TestChatEndpoint(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage("What do you know about torque?")},
	)
	srv, _ := newTestServer(t, mock)

	resp := postJSON(t, srv.URL+"/api/chat", app.ChatRequest{
		StudentID: "s1",
		Message:   "Help me understand torque",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body app.ChatResponse
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.SessionID)
	require.Equal(t, "socratic_tutor", body.AgentUsed)
	require.Equal(t, "What do you know about torque?", body.Response)
}

func TestChatEndpoint_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewMockProvider())

	resp := postJSON(t, srv.URL+"/api/chat", map[string]string{"message": "hi"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	raw, err := http.Post(srv.URL+"/api/chat", "application/json", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, raw.StatusCode)
	raw.Body.Close()
}

func TestTopicsEndpoint(t *testing.T) {
	srv, a := newTestServer(t, llm.NewMockProvider())

	require.NoError(t, a.Problems.Upsert(context.Background(), &store.Problem{
		ID: "rot-1", Topic: "rotation", Difficulty: "medium", Question: "q",
	}))

	resp, err := http.Get(srv.URL + "/api/topics")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Topics []store.TopicStat `json:"topics"`
	}
	decodeBody(t, resp, &body)
	require.Equal(t, []store.TopicStat{{Topic: "rotation", Count: 1}}, body.Topics)
}

func TestSessionEndpoints(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage("Think about rotation.")},
	)
	srv, _ := newTestServer(t, mock)

	chat := postJSON(t, srv.URL+"/api/chat", app.ChatRequest{
		StudentID: "s1",
		Message:   "Help me with torque",
		Topic:     "rotation",
	})
	var chatBody app.ChatResponse
	decodeBody(t, chat, &chatBody)

	resp, err := http.Get(srv.URL + "/api/session/" + chatBody.SessionID + "/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sess sessionView
	decodeBody(t, resp, &sess)
	require.Equal(t, "s1", sess.StudentID)
	require.Equal(t, "rotation", sess.Topic)
	require.Len(t, sess.History, 2)
	require.Equal(t, 1, sess.AgentUsage["socratic_tutor"])

	progResp, err := http.Get(srv.URL + "/api/session/" + chatBody.SessionID + "/progress")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, progResp.StatusCode)

	var progBody struct {
		SessionID string `json:"session_id"`
		Progress  struct {
			Method          string `json:"method"`
			OverallProgress int    `json:"overall_progress"`
		} `json:"progress"`
	}
	decodeBody(t, progResp, &progBody)
	require.Equal(t, "heuristic", progBody.Progress.Method)
}

func TestSessionEndpoints_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewMockProvider())

	resp, err := http.Get(srv.URL + "/api/session/missing/")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/session/missing/progress")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestStudentEndpoints(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage("ok")},
	)
	srv, _ := newTestServer(t, mock)

	chat := postJSON(t, srv.URL+"/api/chat", app.ChatRequest{StudentID: "s1", Message: "hello, help me learn"})
	var chatBody app.ChatResponse
	decodeBody(t, chat, &chatBody)

	profResp, err := http.Get(srv.URL + "/api/student/s1/profile")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, profResp.StatusCode)

	var profile store.Profile
	decodeBody(t, profResp, &profile)
	require.Equal(t, "s1", profile.StudentID)
	require.Equal(t, "medium", profile.Preferences["difficulty_level"])

	sessResp, err := http.Get(srv.URL + "/api/student/s1/sessions")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, sessResp.StatusCode)

	var sessBody struct {
		StudentID string               `json:"student_id"`
		Sessions  []sessionSummaryView `json:"sessions"`
	}
	decodeBody(t, sessResp, &sessBody)
	require.Len(t, sessBody.Sessions, 1)
	require.Equal(t, chatBody.SessionID, sessBody.Sessions[0].ID)
	require.Equal(t, 1, sessBody.Sessions[0].InteractionCount)

	missingResp, err := http.Get(srv.URL + "/api/student/ghost/profile")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, missingResp.StatusCode)
	missingResp.Body.Close()
}
