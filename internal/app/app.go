// Package app wires the store, LLM provider, agents, and progress
// tracker into the application services consumed by the HTTP API, the
// MCP server, and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhinavg/jeetutor/internal/agents"
	"github.com/abhinavg/jeetutor/internal/llm"
	"github.com/abhinavg/jeetutor/internal/progress"
	"github.com/abhinavg/jeetutor/internal/store"
)

// DefaultSessionTimeout is the inactivity window before a session expires.
const DefaultSessionTimeout = 60 * time.Minute

// Config holds application-level settings.
type Config struct {
	DBPath         string
	SessionTimeout time.Duration
}

// App is the composition root.
type App struct {
	Store    *store.Store
	Sessions store.SessionRepo
	Profiles store.ProfileRepo
	Problems store.ProblemRepo

	Provider    llm.Provider
	Coordinator *agents.Coordinator
	Tracker     *progress.HybridTracker

	Logger *slog.Logger
}

// New builds the application with a provider resolved from the
// environment.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	st, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProviderFromEnv(ctx, st.EventRepo())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}

	return NewWithProvider(st, provider, cfg, logger), nil
}

// NewWithProvider builds the application around an existing store and
// provider. Used by tests and by commands that construct their own
// provider.
func NewWithProvider(st *store.Store, provider llm.Provider, cfg Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}

	tracker := progress.NewHybridTracker(
		progress.NewDeepEvaluator(provider, progress.NewMemoryCache(), logger))

	coordinator := agents.NewCoordinator(
		agents.NewSocraticTutor(provider),
		agents.NewSolutionValidator(provider),
		agents.NewCalculator(provider),
		tracker,
		logger,
	)

	return &App{
		Store:       st,
		Sessions:    st.SessionRepo(timeout),
		Profiles:    st.ProfileRepo(),
		Problems:    st.ProblemRepo(),
		Provider:    provider,
		Coordinator: coordinator,
		Tracker:     tracker,
		Logger:      logger,
	}
}

// Close releases the application's resources.
func (a *App) Close() error {
	return a.Store.Close()
}

func openStore(dbPath string) (*store.Store, error) {
	if dbPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		dbPath = p
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// groundTruthFor derives the evaluation ground truth from a problem
// record. Returns nil when the problem has no verified breakdown.
func groundTruthFor(p *store.Problem) *progress.GroundTruth {
	if p == nil {
		return nil
	}
	if len(p.KeyConcepts) == 0 && len(p.SolutionSteps) == 0 && p.Answer == "" {
		return nil
	}
	return &progress.GroundTruth{
		ProblemID:     p.ID,
		KeyConcepts:   p.KeyConcepts,
		SolutionSteps: p.SolutionSteps,
		FinalAnswer:   p.Answer,
	}
}

// loadProblem fetches a problem, mapping ErrNotFound to a nil problem.
func (a *App) loadProblem(ctx context.Context, id string) (*store.Problem, error) {
	if id == "" {
		return nil, nil
	}
	p, err := a.Problems.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return p, err
}
