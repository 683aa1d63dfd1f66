package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abhinavg/jeetutor/internal/store"
)

// rawProblem tolerates the field-name variants found in problem set
// exports.
type rawProblem struct {
	ID         string `json:"id"`
	Topic      string `json:"topic"`
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty"`
	Level      string `json:"level"`

	Question string `json:"question"`
	Problem  string `json:"problem"`
	Text     string `json:"text"`

	Solution          string `json:"solution"`
	AnswerExplanation string `json:"answer_explanation"`

	Answer        string `json:"answer"`
	CorrectAnswer string `json:"correct_answer"`

	Hints         json.RawMessage `json:"hints"`
	Hint          json.RawMessage `json:"hint"`
	KeyConcepts   []string        `json:"key_concepts"`
	SolutionSteps []string        `json:"solution_steps"`
}

type problemsFile struct {
	Problems []rawProblem `json:"problems"`
}

// IndexProblems loads a problems JSON file into the problem bank and
// returns how many problems were indexed. The file may be either a
// bare array or an object with a "problems" key.
func (a *App) IndexProblems(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read problems file: %w", err)
	}

	var file problemsFile
	if err := json.Unmarshal(data, &file); err != nil || len(file.Problems) == 0 {
		var bare []rawProblem
		if err := json.Unmarshal(data, &bare); err != nil {
			return 0, fmt.Errorf("parse problems file: %w", err)
		}
		file.Problems = bare
	}

	source := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	indexed := 0
	for i, raw := range file.Problems {
		p := normalizeProblem(raw, source, i)
		if p.Question == "" {
			a.Logger.Warn("skipping problem with no question", "id", p.ID)
			continue
		}
		if err := a.Problems.Upsert(ctx, p); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}

func normalizeProblem(raw rawProblem, source string, index int) *store.Problem {
	id := raw.ID
	if id == "" {
		id = fmt.Sprintf("prob_%s_%03d", source, index)
	}

	topic := firstNonEmpty(raw.Topic, raw.Subject, "physics")
	difficulty := firstNonEmpty(raw.Difficulty, raw.Level, "medium")

	return &store.Problem{
		ID:            id,
		Topic:         strings.ToLower(topic),
		Difficulty:    strings.ToLower(difficulty),
		Question:      firstNonEmpty(raw.Question, raw.Problem, raw.Text),
		Solution:      firstNonEmpty(raw.Solution, raw.AnswerExplanation),
		Answer:        firstNonEmpty(raw.Answer, raw.CorrectAnswer),
		Hints:         decodeHints(raw.Hints, raw.Hint),
		KeyConcepts:   raw.KeyConcepts,
		SolutionSteps: raw.SolutionSteps,
	}
}

// decodeHints accepts a hint field that is either a string or a list of
// strings.
func decodeHints(candidates ...json.RawMessage) []string {
	for _, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			return list
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil && single != "" {
			return []string{single}
		}
	}
	return []string{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
