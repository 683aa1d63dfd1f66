// Package agents implements the specialist tutoring agents and the
// coordinator that routes student requests between them.
package agents

import "github.com/abhinavg/jeetutor/internal/progress"

// Agent names used in routing, session records, and API responses.
const (
	AgentSocraticTutor     = "socratic_tutor"
	AgentSolutionValidator = "solution_validator"
	AgentCalculator        = "physics_calculator"
)

// Context carries the session-scoped information an agent may consult.
// All fields are optional.
type Context struct {
	// Problem is the statement of the problem being worked on.
	Problem string

	// Topic is the physics topic of the session.
	Topic string

	// StudentSolution is an attached worked solution to validate.
	StudentSolution string

	// History is the conversation so far, oldest first.
	History []progress.Turn

	// State is the session's lightweight progress tally.
	State *progress.State

	// GroundTruth is the verified solution, when known.
	GroundTruth *progress.GroundTruth
}

// Result is the coordinator's answer to one student message.
type Result struct {
	Response   string
	Agent      string
	Confidence float64

	// State is the progress tally after applying this message.
	State *progress.State

	// Progress is set when this request triggered a progress
	// evaluation (solution requests).
	Progress *progress.Evaluation
}

// recentHistory returns the last n turns of the conversation.
func recentHistory(history []progress.Turn, n int) []progress.Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
