package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist or has
// expired.
var ErrNotFound = errors.New("not found")

// Session is one student tutoring conversation.
type Session struct {
	ID            string
	StudentID     string
	Topic         string
	ProblemID     string
	HintsProvided int

	// ProgressState is the serialized lightweight progress tally.
	// Empty until the first student message is tracked.
	ProgressState json.RawMessage

	CreatedAt  time.Time
	LastActive time.Time
}

// Turn is one persisted conversation message.
type Turn struct {
	ID        int64
	SessionID string
	Role      string
	Agent     string // responding agent, empty for student turns
	Content   string
	CreatedAt time.Time
}

// SessionRepo manages sessions, their conversation history, and
// per-agent usage counts. Sessions expire after an inactivity window;
// expired sessions behave as if they never existed.
type SessionRepo interface {
	// Create starts a session for a student, optionally scoped to a topic.
	Create(ctx context.Context, studentID, topic string) (*Session, error)

	// Get returns the session and refreshes its activity timestamp.
	// Returns ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*Session, error)

	// SetProblem attaches the problem the session is working on.
	SetProblem(ctx context.Context, id, problemID string) error

	// SaveProgressState persists the serialized progress tally.
	SaveProgressState(ctx context.Context, id string, state json.RawMessage) error

	// IncrementHints bumps the session's hint counter.
	IncrementHints(ctx context.Context, id string) error

	// AppendTurn adds a message to the conversation history.
	AppendTurn(ctx context.Context, t Turn) error

	// History returns the conversation in chronological order.
	History(ctx context.Context, sessionID string) ([]Turn, error)

	// RecordAgentUsage bumps the usage count for an agent.
	RecordAgentUsage(ctx context.Context, sessionID, agent string) error

	// AgentUsage returns per-agent usage counts for the session.
	AgentUsage(ctx context.Context, sessionID string) (map[string]int, error)

	// ListByStudent returns the student's sessions, newest first.
	ListByStudent(ctx context.Context, studentID string, limit int) ([]Session, error)

	// Cleanup deletes expired sessions and returns how many were removed.
	Cleanup(ctx context.Context) (int64, error)
}

// TopicMastery tracks a student's standing in one topic.
type TopicMastery struct {
	Topic             string    `json:"topic"`
	Level             string    `json:"level"`
	ProblemsAttempted int       `json:"problems_attempted"`
	ProblemsCorrect   int       `json:"problems_correct"`
	WeakAreas         []string  `json:"weak_areas"`
	StrongAreas       []string  `json:"strong_areas"`
	LastPracticed     time.Time `json:"last_practiced"`
}

// Profile is a student's persistent learning profile.
type Profile struct {
	StudentID   string            `json:"student_id"`
	Preferences map[string]string `json:"preferences"`
	Mastery     []TopicMastery    `json:"topic_mastery"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ProfileRepo manages student profiles and mastery stats.
type ProfileRepo interface {
	// Ensure returns the profile, creating it with default preferences
	// if the student is new.
	Ensure(ctx context.Context, studentID string) (*Profile, error)

	// Get returns the profile or ErrNotFound.
	Get(ctx context.Context, studentID string) (*Profile, error)

	// SetPreferences replaces the student's preferences.
	SetPreferences(ctx context.Context, studentID string, prefs map[string]string) error

	// RecordAttempt increments the per-topic attempt counters and
	// rederives the mastery level from the success rate.
	RecordAttempt(ctx context.Context, studentID, topic string, correct bool) error

	// SetAreas replaces the weak/strong area lists for a topic.
	SetAreas(ctx context.Context, studentID, topic string, weak, strong []string) error
}

// Problem is one entry in the problem bank.
type Problem struct {
	ID         string   `json:"id"`
	Topic      string   `json:"topic"`
	Difficulty string   `json:"difficulty"`
	Question   string   `json:"question"`
	Solution   string   `json:"solution"`
	Answer     string   `json:"answer"`
	Hints      []string `json:"hints"`

	// Verified-solution breakdown used for progress evaluation.
	KeyConcepts   []string `json:"key_concepts"`
	SolutionSteps []string `json:"solution_steps"`
}

// TopicStat summarizes the bank's coverage of one topic.
type TopicStat struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// ProblemRepo manages the problem bank.
type ProblemRepo interface {
	// Upsert inserts or replaces a problem.
	Upsert(ctx context.Context, p *Problem) error

	// Get returns the problem or ErrNotFound.
	Get(ctx context.Context, id string) (*Problem, error)

	// Find returns problems matching the optional topic and difficulty
	// filters.
	Find(ctx context.Context, topic, difficulty string, limit int) ([]Problem, error)

	// Search returns problems whose question matches the query text.
	Search(ctx context.Context, query string, limit int) ([]Problem, error)

	// Random returns a random problem matching the optional filters,
	// or ErrNotFound when nothing matches.
	Random(ctx context.Context, topic, difficulty string) (*Problem, error)

	// Topics returns per-topic problem counts.
	Topics(ctx context.Context) ([]TopicStat, error)
}

// LLMRequestEvent captures one LLM API call.
type LLMRequestEvent struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// EventRepo provides append access to domain events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEvent) error
}
