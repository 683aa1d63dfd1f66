package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type problemRepo struct {
	db *sql.DB
}

const problemColumns = `id, topic, difficulty, question, solution, answer, hints, key_concepts, solution_steps`

func (r *problemRepo) Upsert(ctx context.Context, p *Problem) error {
	hints, _ := json.Marshal(orEmpty(p.Hints))
	concepts, _ := json.Marshal(orEmpty(p.KeyConcepts))
	steps, _ := json.Marshal(orEmpty(p.SolutionSteps))

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO problems (`+problemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			topic = excluded.topic,
			difficulty = excluded.difficulty,
			question = excluded.question,
			solution = excluded.solution,
			answer = excluded.answer,
			hints = excluded.hints,
			key_concepts = excluded.key_concepts,
			solution_steps = excluded.solution_steps`,
		p.ID, strings.ToLower(p.Topic), strings.ToLower(p.Difficulty), p.Question,
		p.Solution, p.Answer, string(hints), string(concepts), string(steps))
	if err != nil {
		return fmt.Errorf("upsert problem: %w", err)
	}
	return nil
}

func (r *problemRepo) Get(ctx context.Context, id string) (*Problem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+problemColumns+` FROM problems WHERE id = ?`, id)
	p, err := scanProblem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *problemRepo) Find(ctx context.Context, topic, difficulty string, limit int) ([]Problem, error) {
	query, args := filterQuery(topic, difficulty)
	if limit <= 0 {
		limit = 20
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)
	return r.queryProblems(ctx, query, args...)
}

func (r *problemRepo) Search(ctx context.Context, text string, limit int) ([]Problem, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.ToLower(text) + "%"
	return r.queryProblems(ctx,
		`SELECT `+problemColumns+` FROM problems
		 WHERE lower(question) LIKE ? OR topic LIKE ? ORDER BY id LIMIT ?`,
		pattern, pattern, limit)
}

func (r *problemRepo) Random(ctx context.Context, topic, difficulty string) (*Problem, error) {
	query, args := filterQuery(topic, difficulty)
	query += ` ORDER BY RANDOM() LIMIT 1`

	rows, err := r.queryProblems(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (r *problemRepo) Topics(ctx context.Context) ([]TopicStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT topic, COUNT(*) FROM problems GROUP BY topic ORDER BY topic`)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var stats []TopicStat
	for rows.Next() {
		var s TopicStat
		if err := rows.Scan(&s.Topic, &s.Count); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func filterQuery(topic, difficulty string) (string, []any) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE 1=1`
	var args []any
	if topic != "" {
		query += ` AND topic = ?`
		args = append(args, strings.ToLower(topic))
	}
	if difficulty != "" {
		query += ` AND difficulty = ?`
		args = append(args, strings.ToLower(difficulty))
	}
	return query, args
}

func (r *problemRepo) queryProblems(ctx context.Context, query string, args ...any) ([]Problem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query problems: %w", err)
	}
	defer rows.Close()

	var problems []Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, *p)
	}
	return problems, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (*Problem, error) {
	var p Problem
	var hints, concepts, steps string
	err := row.Scan(&p.ID, &p.Topic, &p.Difficulty, &p.Question, &p.Solution,
		&p.Answer, &hints, &concepts, &steps)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan problem: %w", err)
	}
	if err := json.Unmarshal([]byte(hints), &p.Hints); err != nil {
		return nil, fmt.Errorf("decode hints: %w", err)
	}
	if err := json.Unmarshal([]byte(concepts), &p.KeyConcepts); err != nil {
		return nil, fmt.Errorf("decode key concepts: %w", err)
	}
	if err := json.Unmarshal([]byte(steps), &p.SolutionSteps); err != nil {
		return nil, fmt.Errorf("decode solution steps: %w", err)
	}
	return &p, nil
}
