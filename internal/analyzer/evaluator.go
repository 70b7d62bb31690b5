package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ghoulbites/applycrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// evaluatorConcurrency bounds how many candidates are scored at once.
const evaluatorConcurrency = 4

// acceptScore is the minimum evidence score for a positive verdict.
const acceptScore = 3

// Evaluator renders the final verdict on batches of candidate pages.
// Implementations must never fail a whole batch: a per-item failure
// degrades that item to a negative verdict with an explanatory
// Evaluation.
type Evaluator interface {
	EvaluateBatch(ctx context.Context, batch []model.CandidatePage) []model.CandidatePage
}

// HeuristicEvaluator scores candidates from the detector's recorded
// signals plus the stored HTML snippet. It stands in for an external
// classifier service behind the same interface.
type HeuristicEvaluator struct {
	detector *Detector
}

// NewHeuristicEvaluator builds an evaluator sharing the detector's
// pattern tables.
func NewHeuristicEvaluator(detector *Detector) *HeuristicEvaluator {
	return &HeuristicEvaluator{detector: detector}
}

// EvaluateBatch scores each candidate concurrently and returns the
// batch with IsActualApplication and Evaluation filled in. Order is
// preserved. A cancelled context degrades the unfinished items rather
// than dropping them.
func (e *HeuristicEvaluator) EvaluateBatch(ctx context.Context, batch []model.CandidatePage) []model.CandidatePage {
	out := make([]model.CandidatePage, len(batch))
	copy(out, batch)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(evaluatorConcurrency)
	for i := range out {
		idx := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[idx].IsActualApplication = false
				out[idx].Evaluation = fmt.Sprintf("evaluation aborted: %v", err)
				return nil
			}
			out[idx] = e.evaluate(out[idx])
			return nil
		})
	}
	// Workers never return errors; degraded items carry their own
	// explanation.
	_ = g.Wait()
	return out
}

// evaluate scores one candidate. Strong signals (explicit URL pattern,
// application form action) weigh double; weak signals (keyword
// sightings) weigh one. Re-running the detector against the stored
// snippet catches pages whose fetch-time reasons were thin.
func (e *HeuristicEvaluator) evaluate(page model.CandidatePage) model.CandidatePage {
	score := 0
	for _, reason := range page.Reasons {
		score += reasonWeight(reason)
	}

	if _, reasons := e.detector.IsApplicationPage(page.URL, page.HTMLSnippet, page.Title); len(reasons) > len(page.Reasons) {
		score++
	}

	page.IsActualApplication = score >= acceptScore
	if page.IsActualApplication {
		page.Evaluation = fmt.Sprintf("application page (score %d): %s", score, strings.Join(page.Reasons, "; "))
	} else {
		page.Evaluation = fmt.Sprintf("insufficient evidence (score %d)", score)
	}
	return page
}

func reasonWeight(reason string) int {
	if strings.HasPrefix(reason, "url pattern:") || strings.HasPrefix(reason, "form action:") {
		return 2
	}
	return 1
}
