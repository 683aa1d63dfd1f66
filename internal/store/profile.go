package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type profileRepo struct {
	db *sql.DB
}

func defaultPreferences() map[string]string {
	return map[string]string{
		"difficulty_level": "medium",
		"learning_pace":    "moderate",
	}
}

func (r *profileRepo) Ensure(ctx context.Context, studentID string) (*Profile, error) {
	p, err := r.Get(ctx, studentID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	prefs := defaultPreferences()
	encoded, _ := json.Marshal(prefs)
	now := time.Now()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO profiles (student_id, preferences, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(student_id) DO NOTHING`,
		studentID, string(encoded), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return r.Get(ctx, studentID)
}

func (r *profileRepo) Get(ctx context.Context, studentID string) (*Profile, error) {
	var (
		prefs     string
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT preferences, created_at FROM profiles WHERE student_id = ?`, studentID).
		Scan(&prefs, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	p := &Profile{
		StudentID:   studentID,
		Preferences: map[string]string{},
		CreatedAt:   parseTime(createdAt),
	}
	if err := json.Unmarshal([]byte(prefs), &p.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}

	mastery, err := r.mastery(ctx, studentID)
	if err != nil {
		return nil, err
	}
	p.Mastery = mastery
	return p, nil
}

func (r *profileRepo) SetPreferences(ctx context.Context, studentID string, prefs map[string]string) error {
	encoded, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET preferences = ? WHERE student_id = ?`, string(encoded), studentID)
	if err != nil {
		return fmt.Errorf("set preferences: %w", err)
	}
	return requireRow(res)
}

func (r *profileRepo) RecordAttempt(ctx context.Context, studentID, topic string, correct bool) error {
	if _, err := r.Ensure(ctx, studentID); err != nil {
		return err
	}

	inc := 0
	if correct {
		inc = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO topic_mastery (student_id, topic, problems_attempted, problems_correct, last_practiced)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT(student_id, topic) DO UPDATE SET
			problems_attempted = problems_attempted + 1,
			problems_correct = problems_correct + excluded.problems_correct,
			last_practiced = excluded.last_practiced`,
		studentID, topic, inc, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	return r.rederiveLevel(ctx, studentID, topic)
}

// rederiveLevel recomputes the mastery level from the success rate.
// Levels only move once the sample is large enough to mean something.
func (r *profileRepo) rederiveLevel(ctx context.Context, studentID, topic string) error {
	var attempted, correct int
	err := r.db.QueryRowContext(ctx,
		`SELECT problems_attempted, problems_correct FROM topic_mastery
		 WHERE student_id = ? AND topic = ?`, studentID, topic).
		Scan(&attempted, &correct)
	if err != nil {
		return fmt.Errorf("read mastery counters: %w", err)
	}
	if attempted < 10 {
		return nil
	}

	rate := float64(correct) / float64(attempted)
	level := "beginner"
	switch {
	case rate >= 0.8:
		level = "advanced"
	case rate >= 0.5:
		level = "intermediate"
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE topic_mastery SET level = ? WHERE student_id = ? AND topic = ?`,
		level, studentID, topic)
	if err != nil {
		return fmt.Errorf("update mastery level: %w", err)
	}
	return nil
}

func (r *profileRepo) SetAreas(ctx context.Context, studentID, topic string, weak, strong []string) error {
	if _, err := r.Ensure(ctx, studentID); err != nil {
		return err
	}
	weakJSON, _ := json.Marshal(orEmpty(weak))
	strongJSON, _ := json.Marshal(orEmpty(strong))

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO topic_mastery (student_id, topic, weak_areas, strong_areas, last_practiced)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(student_id, topic) DO UPDATE SET
			weak_areas = excluded.weak_areas,
			strong_areas = excluded.strong_areas`,
		studentID, topic, string(weakJSON), string(strongJSON), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set areas: %w", err)
	}
	return nil
}

func (r *profileRepo) mastery(ctx context.Context, studentID string) ([]TopicMastery, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT topic, level, problems_attempted, problems_correct, weak_areas, strong_areas, last_practiced
		 FROM topic_mastery WHERE student_id = ? ORDER BY topic`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query mastery: %w", err)
	}
	defer rows.Close()

	var out []TopicMastery
	for rows.Next() {
		var (
			m             TopicMastery
			weak, strong  string
			lastPracticed string
		)
		if err := rows.Scan(&m.Topic, &m.Level, &m.ProblemsAttempted, &m.ProblemsCorrect, &weak, &strong, &lastPracticed); err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		if err := json.Unmarshal([]byte(weak), &m.WeakAreas); err != nil {
			return nil, fmt.Errorf("decode weak areas: %w", err)
		}
		if err := json.Unmarshal([]byte(strong), &m.StrongAreas); err != nil {
			return nil, fmt.Errorf("decode strong areas: %w", err)
		}
		m.LastPracticed = parseTime(lastPracticed)
		out = append(out, m)
	}
	return out, rows.Err()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
