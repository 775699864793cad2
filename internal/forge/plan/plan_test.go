package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/forgeloop/forgeloop/internal/forge/models"
)

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	return NewPlanner(5, zaptest.NewLogger(t))
}

func evalWith(checks ...models.CheckResult) models.Evaluation {
	return models.Evaluation{Checks: checks, Score: 50}
}

func failing(name string, issues ...string) models.CheckResult {
	return models.CheckResult{
		Name:    name,
		Verdict: models.Verdict{Status: models.StatusFail, Issues: issues},
	}
}

func passing(name string) models.CheckResult {
	return models.CheckResult{
		Name:    name,
		Verdict: models.Verdict{Status: models.StatusPass},
	}
}

func TestPlanMatchesIssueKeywords(t *testing.T) {
	p := newTestPlanner(t)

	eval := evalWith(failing(models.CheckStructure, "missing navbar markup"))
	actions := p.Plan(eval, "")
	assert.Equal(t, []models.Action{models.ActionNavigation}, actions)
}

func TestPlanIsNeverEmpty(t *testing.T) {
	p := newTestPlanner(t)

	// All checks pass but the score is below threshold: the plan still
	// carries the general improvement action.
	eval := evalWith(
		passing(models.CheckStructure),
		passing(models.CheckCodeQuality),
		passing(models.CheckFunctionality),
		passing(models.CheckGoalAlignment),
		passing(models.CheckBestPractices),
	)
	eval.GoalMet = false

	actions := p.Plan(eval, "zzz qqq")
	assert.Equal(t, []models.Action{models.ActionGeneral}, actions)
}

func TestPlanDeduplicates(t *testing.T) {
	p := newTestPlanner(t)

	eval := evalWith(
		failing(models.CheckStructure, "navbar is broken", "menu missing entries"),
		failing(models.CheckBestPractices, "navigation naming drift"),
	)
	actions := p.Plan(eval, "")
	assert.Equal(t, []models.Action{models.ActionNavigation}, actions)
}

func TestPlanCapsActionCount(t *testing.T) {
	p := newTestPlanner(t)

	eval := evalWith(failing(models.CheckGoalAlignment,
		"navbar missing", "hero missing", "login missing", "api missing",
		"database missing", "responsive missing", "css missing", "component missing"))

	actions := p.Plan(eval, "")
	assert.Len(t, actions, 5)
	// Priority follows table order among the matched actions.
	assert.Equal(t, []models.Action{
		models.ActionNavigation,
		models.ActionHero,
		models.ActionAuthentication,
		models.ActionAPI,
		models.ActionDatabase,
	}, actions)
}

func TestPlanGoalDrivesActionsWhenChecksPass(t *testing.T) {
	p := newTestPlanner(t)

	eval := evalWith(
		passing(models.CheckStructure),
		passing(models.CheckFunctionality),
	)
	eval.GoalMet = false

	actions := p.Plan(eval, "a landing page with authentication and a responsive design")
	assert.Equal(t, []models.Action{
		models.ActionHero,
		models.ActionAuthentication,
		models.ActionResponsive,
		models.ActionStyling,
	}, actions)
}

func TestPlanPriorityOrder(t *testing.T) {
	p := newTestPlanner(t)

	// Best-practices issues rank after structural ones even though they
	// appear first in the evaluation.
	eval := evalWith(
		failing(models.CheckBestPractices, "css drift"),
		failing(models.CheckStructure, "hero section missing"),
	)
	actions := p.Plan(eval, "")
	assert.Equal(t, []models.Action{models.ActionHero, models.ActionStyling}, actions)
}

func TestPlanKeepsNoMemory(t *testing.T) {
	p := newTestPlanner(t)

	eval := evalWith(failing(models.CheckStructure, "hero missing"))
	first := p.Plan(eval, "")
	second := p.Plan(eval, "")
	assert.Equal(t, first, second, "repeated plans are allowed and identical")
}
