package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhinavg/jeetutor/internal/progress"
)

// Keyword lists driving deterministic routing. Matching is
// case-insensitive substring containment.
var (
	validatorKeywords = []string{
		"check", "verify", "correct", "is this right", "validate",
		"review my", "look at my", "is my answer", "feedback on my",
	}
	calculatorKeywords = []string{
		"calculate", "compute", "find the", "what is the value",
		"solve for", "determine the", "evaluate",
	}
	tutorKeywords = []string{
		"help", "understand", "explain", "teach", "practice",
		"hint", "confused", "don't get", "how do i", "guide me",
		"problem", "stuck", "learn",
	}
)

// Solution unlock thresholds applied to the progress evaluation.
const (
	fullSolutionThreshold    = 50
	partialSolutionThreshold = 40
)

// Coordinator routes student messages to the specialist agents and
// keeps the session's progress tally current.
type Coordinator struct {
	tutor      *SocraticTutor
	validator  *SolutionValidator
	calculator *Calculator
	tracker    *progress.HybridTracker
	logger     *slog.Logger
}

// NewCoordinator wires the coordinator. A nil logger discards logs.
func NewCoordinator(tutor *SocraticTutor, validator *SolutionValidator, calculator *Calculator, tracker *progress.HybridTracker, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		tutor:      tutor,
		validator:  validator,
		calculator: calculator,
		tracker:    tracker,
		logger:     logger,
	}
}

// Process handles one student message: update the progress tally, apply
// the solution unlock policy when the student asks for the solution,
// otherwise route to the best-matching specialist.
func (c *Coordinator) Process(ctx context.Context, message string, actx *Context) (*Result, error) {
	if actx == nil {
		actx = &Context{}
	}

	state := c.tracker.UpdateRealtime(actx.State, message, actx.GroundTruth)

	if IsSolutionRequest(message) && actx.GroundTruth != nil {
		history := append(append([]progress.Turn(nil), actx.History...),
			progress.Turn{Role: progress.RoleStudent, Content: message})
		eval := c.tracker.AccurateProgress(ctx, state, history, actx.GroundTruth, actx.Problem, true)

		c.logger.Info("solution request gated",
			"progress", eval.OverallProgress,
			"method", eval.Method,
			"from_cache", eval.FromCache)

		return &Result{
			Response:   renderSolutionGate(eval, actx.GroundTruth),
			Agent:      AgentSocraticTutor,
			Confidence: 1.0,
			State:      state,
			Progress:   eval,
		}, nil
	}

	agent, confidence := Route(message, actx.StudentSolution != "")
	c.logger.Debug("routed request", "agent", agent, "confidence", confidence)

	var (
		response string
		err      error
	)
	switch agent {
	case AgentSolutionValidator:
		response, err = c.validateSolution(ctx, message, actx)
	case AgentCalculator:
		response, err = c.calculator.Calculate(ctx, message)
	default:
		response, err = c.tutor.Teach(ctx, message, actx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", agent, err)
	}

	return &Result{
		Response:   response,
		Agent:      agent,
		Confidence: confidence,
		State:      state,
	}, nil
}

func (c *Coordinator) validateSolution(ctx context.Context, message string, actx *Context) (string, error) {
	problem := actx.Problem
	if problem == "" {
		problem = "Please check this solution"
	}
	solution := actx.StudentSolution
	if solution == "" {
		solution = message
	}

	val, err := c.validator.Validate(ctx, problem, solution, actx)
	if err != nil {
		return "", err
	}
	return val.Render(), nil
}

// Route scores the message against each agent's keyword list and picks
// the winner. Ties and no-signal messages default to the tutor.
func Route(message string, hasAttachedSolution bool) (string, float64) {
	lowered := strings.ToLower(message)

	validatorScore := countMatches(lowered, validatorKeywords)
	calculatorScore := countMatches(lowered, calculatorKeywords)
	tutorScore := countMatches(lowered, tutorKeywords)

	// An attached worked solution is a strong validation signal.
	if hasAttachedSolution {
		validatorScore += 3
	}

	// A short message with calculation phrasing is usually a bare
	// computation request.
	if len(strings.Fields(message)) < 15 && calculatorScore > 0 {
		calculatorScore += 2
	}

	total := validatorScore + calculatorScore + tutorScore
	if total == 0 {
		return AgentSocraticTutor, 0.5
	}

	agent := AgentSocraticTutor
	winner := tutorScore
	if calculatorScore > winner {
		agent, winner = AgentCalculator, calculatorScore
	}
	if validatorScore > winner {
		agent, winner = AgentSolutionValidator, validatorScore
	}

	return agent, float64(winner) / (float64(total) + 0.01)
}

func countMatches(lowered string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			n++
		}
	}
	return n
}

// IsSolutionRequest reports whether the message is asking for the
// solution outright rather than for help.
func IsSolutionRequest(message string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(message))
	switch trimmed {
	case "solution", "solution please":
		return true
	}
	return strings.Contains(trimmed, "give me the solution") ||
		strings.Contains(trimmed, "show me the solution") ||
		strings.Contains(trimmed, "show the solution")
}

// renderSolutionGate applies the unlock policy: full solution at 50+,
// a partial view at 40-49, locked below 40.
func renderSolutionGate(eval *progress.Evaluation, gt *progress.GroundTruth) string {
	switch {
	case eval.OverallProgress >= fullSolutionThreshold:
		return renderFullSolution(eval, gt)
	case eval.OverallProgress >= partialSolutionThreshold:
		return renderPartialSolution(eval, gt)
	default:
		return renderLocked(eval, gt)
	}
}

func renderFullSolution(eval *progress.Evaluation, gt *progress.GroundTruth) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You've earned it. Your progress is at %d%%, so here's the complete solution:\n\n", eval.OverallProgress)
	for i, step := range gt.SolutionSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&b, "\nFinal Answer: %s", gt.FinalAnswer)
	return b.String()
}

func renderPartialSolution(eval *progress.Evaluation, gt *progress.GroundTruth) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You're close (progress %d%%), so here's a partial view to keep you moving.\n\n", eval.OverallProgress)
	if len(gt.KeyConcepts) > 0 {
		b.WriteString("Key concepts: ")
		b.WriteString(strings.Join(gt.KeyConcepts, ", "))
		b.WriteString("\n\n")
	}
	steps := gt.SolutionSteps
	if len(steps) > 2 {
		steps = steps[:2]
	}
	if len(steps) > 0 {
		b.WriteString("First steps:\n")
		for i, step := range steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	b.WriteString("\nWork through the remaining steps and ask again when you're ready.")
	return b.String()
}

func renderLocked(eval *progress.Evaluation, gt *progress.GroundTruth) string {
	missing := eval.MissingConcepts
	if len(missing) == 0 {
		missing = gt.KeyConcepts
	}
	if len(missing) > 2 {
		missing = missing[:2]
	}

	var b strings.Builder
	b.WriteString("Not yet. Showing you the solution now would short-circuit your learning. ")
	if len(missing) > 0 {
		fmt.Fprintf(&b, "Try engaging with %s first. ", strings.Join(missing, " and "))
	}
	b.WriteString("Explain your thinking, attempt a formula, and I'll unlock more as you progress.")
	return b.String()
}
