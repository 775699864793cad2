package evaluate

import "github.com/forgeloop/forgeloop/internal/forge/models"

// computeScore derives the aggregate score from the verdicts of one pass.
// Base is the fraction of passing checks scaled to 100. The issue penalty
// and positive bonus are both capped so a single pathological check cannot
// dominate the signal, and the result is clamped to [0,100] so scores stay
// comparable across iterations.
func (e *Engine) computeScore(results []models.CheckResult) float64 {
	if len(results) == 0 {
		return 0
	}

	passed := 0
	issues := 0
	positives := 0
	for _, r := range results {
		if r.Verdict.Status == models.StatusPass {
			passed++
		}
		issues += len(r.Verdict.Issues)
		positives += len(r.Verdict.Positives)
	}

	base := 100 * float64(passed) / float64(len(results))
	penalty := min(e.scoring.IssuePenaltyWeight*float64(issues), e.scoring.IssuePenaltyCap)
	bonus := min(e.scoring.PositiveBonusWeight*float64(positives), e.scoring.PositiveBonusCap)

	return clamp(base-penalty+bonus, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
