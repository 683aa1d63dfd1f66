package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhinavg/jeetutor/internal/agents"
	"github.com/abhinavg/jeetutor/internal/progress"
	"github.com/abhinavg/jeetutor/internal/store"
)

// ChatRequest is one student message, optionally continuing a session.
type ChatRequest struct {
	StudentID       string `json:"student_id"`
	SessionID       string `json:"session_id,omitempty"`
	Message         string `json:"message"`
	Topic           string `json:"topic,omitempty"`
	ProblemID       string `json:"problem_id,omitempty"`
	StudentSolution string `json:"student_solution,omitempty"`
}

// Validate checks the request's required fields.
func (r *ChatRequest) Validate() error {
	if r.StudentID == "" {
		return errors.New("student_id is required")
	}
	if r.Message == "" {
		return errors.New("message is required")
	}
	return nil
}

// ChatMetadata summarizes session activity for the response.
type ChatMetadata struct {
	InteractionCount int            `json:"interaction_count"`
	AgentUsage       map[string]int `json:"agent_usage"`
	HintsProvided    int            `json:"hints_provided"`
}

// ChatResponse is the answer to one chat request.
type ChatResponse struct {
	SessionID  string               `json:"session_id"`
	Response   string               `json:"response"`
	AgentUsed  string               `json:"agent_used"`
	Confidence float64              `json:"confidence"`
	Progress   *progress.Evaluation `json:"progress,omitempty"`
	Metadata   ChatMetadata         `json:"metadata"`
}

// Chat processes one student message end to end: resolve the session,
// route through the coordinator, and persist the outcome.
func (a *App) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sess, err := a.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, err := a.Profiles.Ensure(ctx, req.StudentID); err != nil {
		return nil, err
	}

	problemID := req.ProblemID
	if problemID == "" {
		problemID = sess.ProblemID
	}
	problem, err := a.loadProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if problem != nil && sess.ProblemID != problem.ID {
		if err := a.Sessions.SetProblem(ctx, sess.ID, problem.ID); err != nil {
			return nil, err
		}
	}

	history, err := a.conversationHistory(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	actx := &agents.Context{
		Topic:           sess.Topic,
		StudentSolution: req.StudentSolution,
		History:         history,
		State:           decodeState(sess.ProgressState),
		GroundTruth:     groundTruthFor(problem),
	}
	if problem != nil {
		actx.Problem = problem.Question
	}

	result, err := a.Coordinator.Process(ctx, req.Message, actx)
	if err != nil {
		return nil, fmt.Errorf("process chat: %w", err)
	}

	if err := a.persistExchange(ctx, sess.ID, req.Message, result); err != nil {
		return nil, err
	}

	usage, err := a.Sessions.AgentUsage(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	current, err := a.Sessions.Get(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	return &ChatResponse{
		SessionID:  sess.ID,
		Response:   result.Response,
		AgentUsed:  result.Agent,
		Confidence: result.Confidence,
		Progress:   result.Progress,
		Metadata: ChatMetadata{
			InteractionCount: result.State.MessageCount,
			AgentUsage:       usage,
			HintsProvided:    current.HintsProvided,
		},
	}, nil
}

// Progress runs an on-demand accurate progress evaluation for a session.
func (a *App) Progress(ctx context.Context, sessionID string) (*progress.Evaluation, error) {
	sess, err := a.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	problem, err := a.loadProblem(ctx, sess.ProblemID)
	if err != nil {
		return nil, err
	}

	history, err := a.conversationHistory(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	gt := groundTruthFor(problem)
	statement := ""
	if problem != nil {
		statement = problem.Question
	}

	return a.Tracker.AccurateProgress(ctx, decodeState(sess.ProgressState), history, gt, statement, true), nil
}

// resolveSession returns the requested session, or a fresh one when the
// ID is absent or the session has expired.
func (a *App) resolveSession(ctx context.Context, req ChatRequest) (*store.Session, error) {
	if req.SessionID != "" {
		sess, err := a.Sessions.Get(ctx, req.SessionID)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		a.Logger.Info("session expired, creating a new one", "session_id", req.SessionID)
	}
	return a.Sessions.Create(ctx, req.StudentID, req.Topic)
}

func (a *App) conversationHistory(ctx context.Context, sessionID string) ([]progress.Turn, error) {
	turns, err := a.Sessions.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history := make([]progress.Turn, 0, len(turns))
	for _, t := range turns {
		history = append(history, progress.Turn{Role: t.Role, Content: t.Content})
	}
	return history, nil
}

func (a *App) persistExchange(ctx context.Context, sessionID, message string, result *agents.Result) error {
	if err := a.Sessions.AppendTurn(ctx, store.Turn{
		SessionID: sessionID,
		Role:      progress.RoleStudent,
		Content:   message,
	}); err != nil {
		return err
	}
	if err := a.Sessions.AppendTurn(ctx, store.Turn{
		SessionID: sessionID,
		Role:      progress.RoleTutor,
		Agent:     result.Agent,
		Content:   result.Response,
	}); err != nil {
		return err
	}
	if err := a.Sessions.RecordAgentUsage(ctx, sessionID, result.Agent); err != nil {
		return err
	}

	encoded, err := json.Marshal(result.State)
	if err != nil {
		return fmt.Errorf("encode progress state: %w", err)
	}
	return a.Sessions.SaveProgressState(ctx, sessionID, encoded)
}

func decodeState(raw json.RawMessage) *progress.State {
	if len(raw) == 0 {
		return nil
	}
	var s progress.State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}
