package progress

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/abhinavg/jeetutor/internal/llm"
)

// DeepEvaluator runs the two-stage LLM evaluation pipeline: summarize
// the student's side of the conversation, then compare the summary
// against the verified solution. Results are cached by content hash so
// repeated evaluations of an unchanged conversation cost nothing.
type DeepEvaluator struct {
	summarizer *Summarizer
	comparator *Comparator
	cache      Cache
	logger     *slog.Logger
	now        func() time.Time
}

// NewDeepEvaluator creates an evaluator. A nil cache disables caching;
// a nil logger discards degradation reports.
func NewDeepEvaluator(provider llm.Provider, cache Cache, logger *slog.Logger) *DeepEvaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DeepEvaluator{
		summarizer: NewSummarizer(provider, DefaultSummarizerConfig()),
		comparator: NewComparator(provider, DefaultComparatorConfig()),
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Evaluate scores the conversation against the ground truth. It never
// returns an error: every internal failure degrades to a deterministic
// fallback, recorded on the result's Degradation field.
func (e *DeepEvaluator) Evaluate(ctx context.Context, history []Turn, gt *GroundTruth, problemStatement string, useCache bool) *Evaluation {
	if gt == nil {
		gt = &GroundTruth{}
	}

	key := cacheKey(gt.ProblemID, history)
	if useCache && e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			cached.FromCache = true
			return cached
		}
	}

	summary, sumErr := e.summarizer.Summarize(ctx, history)
	if sumErr != nil {
		e.logger.Warn("summarization degraded", "error", sumErr.Err)
	}

	eval, cmpErr := e.comparator.Compare(ctx, summary, problemStatement, gt)
	if cmpErr != nil {
		e.logger.Warn("comparison degraded", "error", cmpErr.Err)
	}

	eval.Method = MethodDeepLLM
	eval.FromCache = false
	eval.EvaluatedAt = e.now()
	switch {
	case cmpErr != nil:
		eval.Degradation = cmpErr
	case sumErr != nil:
		eval.Degradation = sumErr
	}

	// Degraded results are not cached: a transient provider failure
	// should not pin a fallback score for the rest of the session.
	if useCache && e.cache != nil && eval.Degradation == nil {
		e.cache.Put(key, eval)
	}
	return eval
}

// cacheKey derives a content-addressed key from the problem identity and
// the full conversation. Any change to either produces a new key.
func cacheKey(problemID string, history []Turn) string {
	payload, _ := json.Marshal(struct {
		ProblemID string `json:"problem_id"`
		History   []Turn `json:"history"`
	}{ProblemID: problemID, History: history})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
