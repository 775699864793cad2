// Package evaluate implements the evaluation engine: a fixed, ordered set of
// independent checks run against the artifact, aggregated into a score and a
// goal-met verdict.
package evaluate

import (
	"context"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/forgeloop/forgeloop/internal/config"
	"github.com/forgeloop/forgeloop/internal/forge/models"
)

// criticalChecks veto goal-met on failure regardless of score.
var criticalChecks = []string{models.CheckStructure, models.CheckFunctionality}

// Engine scores an artifact directory against a free-text goal.
type Engine struct {
	scoring config.ScoringConfig
	log     *zap.Logger

	// runCommand is swapped in tests to avoid invoking npx.
	runCommand func(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// NewEngine returns an Engine using the given scoring constants.
func NewEngine(scoring config.ScoringConfig, log *zap.Logger) *Engine {
	return &Engine{
		scoring:    scoring,
		log:        log.Named("evaluate"),
		runCommand: execInDir,
	}
}

func execInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

type checkFunc func(e *Engine, ctx context.Context, root, goal string) models.Verdict

// checks run in this order on every pass. The ordering is part of the
// reported Evaluation and must stay stable.
var checks = []struct {
	name string
	fn   checkFunc
}{
	{models.CheckStructure, (*Engine).checkStructure},
	{models.CheckCodeQuality, (*Engine).checkCodeQuality},
	{models.CheckFunctionality, (*Engine).checkFunctionality},
	{models.CheckGoalAlignment, (*Engine).checkGoalAlignment},
	{models.CheckBestPractices, (*Engine).checkBestPractices},
}

// Evaluate runs every check sequentially and aggregates the verdicts.
// carried holds issues from a failed validation build; they are attached to
// the functionality check of this pass. Individual check failures never
// abort the evaluation: a broken check reports status fail with one issue.
func (e *Engine) Evaluate(ctx context.Context, root, goal string, carried []string) (models.Evaluation, error) {
	results := make([]models.CheckResult, 0, len(checks))
	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return models.Evaluation{}, err
		}
		verdict := runChecked(e, c.fn, ctx, root, goal)
		if c.name == models.CheckFunctionality && len(carried) > 0 {
			verdict.Status = models.StatusFail
			verdict.Issues = append(verdict.Issues, carried...)
		}
		results = append(results, models.CheckResult{Name: c.name, Verdict: verdict})
		e.log.Debug("check complete",
			zap.String("check", c.name),
			zap.String("status", string(verdict.Status)),
			zap.Int("issues", len(verdict.Issues)))
	}

	eval := models.Evaluation{
		Checks:    results,
		Timestamp: time.Now().UTC(),
	}
	eval.Score = e.computeScore(results)
	eval.GoalMet = e.goalMet(eval)

	e.log.Info("evaluation complete",
		zap.Float64("score", eval.Score),
		zap.Bool("goal_met", eval.GoalMet),
		zap.Int("issues", eval.TotalIssues()))
	return eval, nil
}

// runChecked converts a panicking or otherwise broken check into a failed
// verdict so the evaluation always completes.
func runChecked(e *Engine, fn checkFunc, ctx context.Context, root, goal string) (v models.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v = models.Verdict{
				Status: models.StatusFail,
				Issues: []string{"check could not run"},
			}
		}
	}()
	return fn(e, ctx, root, goal)
}

// goalMet applies the threshold and the critical-check veto. A perfect
// keyword alignment never certifies a structurally broken artifact.
func (e *Engine) goalMet(eval models.Evaluation) bool {
	if eval.Score < e.scoring.GoalThreshold {
		return false
	}
	for _, name := range criticalChecks {
		if v, ok := eval.Check(name); !ok || v.Status != models.StatusPass {
			return false
		}
	}
	if v, ok := eval.Check(models.CheckGoalAlignment); !ok || v.Status != models.StatusPass {
		return false
	}
	return true
}
