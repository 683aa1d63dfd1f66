package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type sessionRepo struct {
	db      *sql.DB
	timeout time.Duration
}

func (r *sessionRepo) Create(ctx context.Context, studentID, topic string) (*Session, error) {
	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		Topic:      topic,
		CreatedAt:  now,
		LastActive: now,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, student_id, topic, created_at, last_active)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.StudentID, s.Topic, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	var (
		s          Session
		state      string
		createdAt  string
		lastActive string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, student_id, topic, problem_id, hints_provided, progress_state, created_at, last_active
		 FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.StudentID, &s.Topic, &s.ProblemID, &s.HintsProvided, &state, &createdAt, &lastActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.CreatedAt = parseTime(createdAt)
	s.LastActive = parseTime(lastActive)
	if state != "" {
		s.ProgressState = json.RawMessage(state)
	}

	if r.expired(s.LastActive) {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		return nil, ErrNotFound
	}

	if err := r.touch(ctx, id); err != nil {
		return nil, err
	}
	s.LastActive = time.Now()
	return &s, nil
}

func (r *sessionRepo) SetProblem(ctx context.Context, id, problemID string) error {
	return r.updateColumn(ctx, id, "problem_id", problemID)
}

func (r *sessionRepo) SaveProgressState(ctx context.Context, id string, state json.RawMessage) error {
	return r.updateColumn(ctx, id, "progress_state", string(state))
}

func (r *sessionRepo) IncrementHints(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET hints_provided = hints_provided + 1, last_active = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("increment hints: %w", err)
	}
	return requireRow(res)
}

func (r *sessionRepo) AppendTurn(ctx context.Context, t Turn) error {
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, agent, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.SessionID, t.Role, t.Agent, t.Content, formatTime(created))
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return r.touch(ctx, t.SessionID)
}

func (r *sessionRepo) History(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, role, agent, content, created_at
		 FROM turns WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var created string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Agent, &t.Content, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.CreatedAt = parseTime(created)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (r *sessionRepo) RecordAgentUsage(ctx context.Context, sessionID, agent string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO agent_usage (session_id, agent, uses) VALUES (?, ?, 1)
		 ON CONFLICT(session_id, agent) DO UPDATE SET uses = uses + 1`,
		sessionID, agent)
	if err != nil {
		return fmt.Errorf("record agent usage: %w", err)
	}
	return nil
}

func (r *sessionRepo) AgentUsage(ctx context.Context, sessionID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT agent, uses FROM agent_usage WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query agent usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]int)
	for rows.Next() {
		var agent string
		var uses int
		if err := rows.Scan(&agent, &uses); err != nil {
			return nil, fmt.Errorf("scan agent usage: %w", err)
		}
		usage[agent] = uses
	}
	return usage, rows.Err()
}

func (r *sessionRepo) ListByStudent(ctx context.Context, studentID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, student_id, topic, problem_id, hints_provided, progress_state, created_at, last_active
		 FROM sessions WHERE student_id = ? ORDER BY last_active DESC LIMIT ?`,
		studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s          Session
			state      string
			createdAt  string
			lastActive string
		)
		if err := rows.Scan(&s.ID, &s.StudentID, &s.Topic, &s.ProblemID, &s.HintsProvided, &state, &createdAt, &lastActive); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.CreatedAt = parseTime(createdAt)
		s.LastActive = parseTime(lastActive)
		if state != "" {
			s.ProgressState = json.RawMessage(state)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *sessionRepo) Cleanup(ctx context.Context) (int64, error) {
	cutoff := formatTime(time.Now().Add(-r.timeout))
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_active < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *sessionRepo) expired(lastActive time.Time) bool {
	return time.Since(lastActive) > r.timeout
}

func (r *sessionRepo) touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_active = ? WHERE id = ?`, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *sessionRepo) updateColumn(ctx context.Context, id, column, value string) error {
	// Column names come from call sites, never user input.
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET `+column+` = ?, last_active = ? WHERE id = ?`,
		value, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update session %s: %w", column, err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
