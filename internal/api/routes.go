package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhinavg/jeetutor/internal/app"
	"github.com/abhinavg/jeetutor/internal/progress"
	"github.com/abhinavg/jeetutor/internal/store"
)

// Health reports service status and the configured model.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"model":  h.app.Provider.ModelID(),
	})
}

// Chat handles one student message.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req app.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.app.Chat(r.Context(), req)
	if err != nil {
		h.serveError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Topics lists the problem bank's topics with counts.
func (h *Handler) Topics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.app.Problems.Topics(r.Context())
	if err != nil {
		h.serveError(w, err)
		return
	}
	if topics == nil {
		topics = []store.TopicStat{}
	}
	JSON(w, http.StatusOK, map[string]any{"topics": topics})
}

type sessionView struct {
	ID            string         `json:"session_id"`
	StudentID     string         `json:"student_id"`
	Topic         string         `json:"topic,omitempty"`
	ProblemID     string         `json:"problem_id,omitempty"`
	HintsProvided int            `json:"hints_provided"`
	AgentUsage    map[string]int `json:"agent_usage"`
	CreatedAt     time.Time      `json:"created_at"`
	LastActive    time.Time      `json:"last_active"`
	History       []turnView     `json:"history"`
}

type turnView struct {
	Role    string `json:"role"`
	Agent   string `json:"agent,omitempty"`
	Content string `json:"content"`
}

// GetSession returns a session with its conversation history.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.app.Sessions.Get(r.Context(), id)
	if err != nil {
		h.serveError(w, err)
		return
	}
	turns, err := h.app.Sessions.History(r.Context(), id)
	if err != nil {
		h.serveError(w, err)
		return
	}
	usage, err := h.app.Sessions.AgentUsage(r.Context(), id)
	if err != nil {
		h.serveError(w, err)
		return
	}

	view := sessionView{
		ID:            sess.ID,
		StudentID:     sess.StudentID,
		Topic:         sess.Topic,
		ProblemID:     sess.ProblemID,
		HintsProvided: sess.HintsProvided,
		AgentUsage:    usage,
		CreatedAt:     sess.CreatedAt,
		LastActive:    sess.LastActive,
		History:       make([]turnView, 0, len(turns)),
	}
	for _, t := range turns {
		view.History = append(view.History, turnView{Role: t.Role, Agent: t.Agent, Content: t.Content})
	}
	JSON(w, http.StatusOK, view)
}

// SessionProgress runs an accurate progress evaluation for the session.
func (h *Handler) SessionProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	eval, err := h.app.Progress(r.Context(), id)
	if err != nil {
		h.serveError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"progress":   eval,
	})
}

// StudentProfile returns the student's learning profile.
func (h *Handler) StudentProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profile, err := h.app.Profiles.Get(r.Context(), id)
	if err != nil {
		h.serveError(w, err)
		return
	}
	if profile.Mastery == nil {
		profile.Mastery = []store.TopicMastery{}
	}
	JSON(w, http.StatusOK, profile)
}

type sessionSummaryView struct {
	ID               string    `json:"session_id"`
	Topic            string    `json:"topic,omitempty"`
	ProblemID        string    `json:"problem_id,omitempty"`
	InteractionCount int       `json:"interaction_count"`
	CreatedAt        time.Time `json:"created_at"`
	LastActive       time.Time `json:"last_active"`
}

// StudentSessions lists a student's sessions, newest first.
func (h *Handler) StudentSessions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sessions, err := h.app.Sessions.ListByStudent(r.Context(), id, 50)
	if err != nil {
		h.serveError(w, err)
		return
	}

	views := make([]sessionSummaryView, 0, len(sessions))
	for _, s := range sessions {
		view := sessionSummaryView{
			ID:         s.ID,
			Topic:      s.Topic,
			ProblemID:  s.ProblemID,
			CreatedAt:  s.CreatedAt,
			LastActive: s.LastActive,
		}
		if len(s.ProgressState) > 0 {
			var state progress.State
			if err := json.Unmarshal(s.ProgressState, &state); err == nil {
				view.InteractionCount = state.MessageCount
			}
		}
		views = append(views, view)
	}
	JSON(w, http.StatusOK, map[string]any{
		"student_id": id,
		"sessions":   views,
	})
}
