// Package store provides SQLite persistence for sessions, student
// profiles, the problem bank, and LLM request events.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store wraps the database handle and hands out repositories.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at dsn, applies pragmas, and
// creates any missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SessionRepo returns a SessionRepo that expires sessions after the
// given inactivity window.
func (s *Store) SessionRepo(timeout time.Duration) SessionRepo {
	return &sessionRepo{db: s.db, timeout: timeout}
}

// ProfileRepo returns a ProfileRepo backed by this store.
func (s *Store) ProfileRepo() ProfileRepo {
	return &profileRepo{db: s.db}
}

// ProblemRepo returns a ProblemRepo backed by this store.
func (s *Store) ProblemRepo() ProblemRepo {
	return &problemRepo{db: s.db}
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{db: s.db}
}

// applyPragmas configures SQLite for service use.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id             TEXT PRIMARY KEY,
			student_id     TEXT NOT NULL,
			topic          TEXT NOT NULL DEFAULT '',
			problem_id     TEXT NOT NULL DEFAULT '',
			hints_provided INTEGER NOT NULL DEFAULT 0,
			progress_state TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL,
			last_active    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_student ON sessions(student_id)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			role       TEXT NOT NULL,
			agent      TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id)`,
		`CREATE TABLE IF NOT EXISTS agent_usage (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			agent      TEXT NOT NULL,
			uses       INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (session_id, agent)
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			student_id  TEXT PRIMARY KEY,
			preferences TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS topic_mastery (
			student_id         TEXT NOT NULL REFERENCES profiles(student_id) ON DELETE CASCADE,
			topic              TEXT NOT NULL,
			level              TEXT NOT NULL DEFAULT 'beginner',
			problems_attempted INTEGER NOT NULL DEFAULT 0,
			problems_correct   INTEGER NOT NULL DEFAULT 0,
			weak_areas         TEXT NOT NULL DEFAULT '[]',
			strong_areas       TEXT NOT NULL DEFAULT '[]',
			last_practiced     TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (student_id, topic)
		)`,
		`CREATE TABLE IF NOT EXISTS problems (
			id             TEXT PRIMARY KEY,
			topic          TEXT NOT NULL,
			difficulty     TEXT NOT NULL,
			question       TEXT NOT NULL,
			solution       TEXT NOT NULL DEFAULT '',
			answer         TEXT NOT NULL DEFAULT '',
			hints          TEXT NOT NULL DEFAULT '[]',
			key_concepts   TEXT NOT NULL DEFAULT '[]',
			solution_steps TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_problems_topic ON problems(topic)`,
		`CREATE TABLE IF NOT EXISTS llm_request_events (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at    TEXT NOT NULL,
			provider      TEXT NOT NULL,
			model         TEXT NOT NULL,
			purpose       TEXT NOT NULL,
			input_tokens  INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			latency_ms    INTEGER NOT NULL,
			success       INTEGER NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			request_body  TEXT NOT NULL DEFAULT '',
			response_body TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. JEETUTOR_DB environment variable
// 2. $XDG_DATA_HOME/jeetutor/jeetutor.db
// 3. ~/.local/share/jeetutor/jeetutor.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("JEETUTOR_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "jeetutor", "jeetutor.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Timestamps are stored as RFC3339 text.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
