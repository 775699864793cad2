// Package plan derives the next iteration's actions from an evaluation.
// Dispatch is a static keyword table: extending the planner means adding
// table rows, not new types.
package plan

import (
	"strings"

	"go.uber.org/zap"

	"github.com/forgeloop/forgeloop/internal/forge/models"
)

// tableEntry maps an action to the terms that trigger it. Order in the
// table is the tie-break when several actions match at once.
type tableEntry struct {
	action models.Action
	terms  []string
}

// keywordTable is the fixed dispatch table, scanned in order.
var keywordTable = []tableEntry{
	{models.ActionNavigation, []string{"navigation", "navbar", "menu"}},
	{models.ActionHero, []string{"hero", "banner", "landing"}},
	{models.ActionAuthentication, []string{"auth", "login", "signup", "authentication"}},
	{models.ActionAPI, []string{"api", "backend", "service"}},
	{models.ActionDatabase, []string{"database", "db", "data"}},
	{models.ActionResponsive, []string{"responsive", "mobile"}},
	{models.ActionStyling, []string{"styling", "css", "design", "ui"}},
	{models.ActionComponents, []string{"component", "module"}},
}

// checkPriority orders the checks whose issues feed the plan: structural
// breakage first, alignment gaps next, stylistic drift last.
var checkPriority = []string{
	models.CheckStructure,
	models.CheckFunctionality,
	models.CheckGoalAlignment,
	models.CheckCodeQuality,
	models.CheckBestPractices,
}

// Planner turns evaluations into bounded, deduplicated action lists.
type Planner struct {
	maxActions int
	log        *zap.Logger
}

// NewPlanner caps each plan at maxActions entries.
func NewPlanner(maxActions int, log *zap.Logger) *Planner {
	return &Planner{maxActions: maxActions, log: log.Named("plan")}
}

// Plan walks the failing and warning checks in priority order, matches
// their issues and the goal's terms against the keyword table, and returns
// a deduplicated list capped at maxActions. A plan is never empty: when
// nothing matches, the general improvement action is returned. Plans may
// repeat actions from earlier iterations; the planner keeps no memory.
func (p *Planner) Plan(eval models.Evaluation, goal string) []models.Action {
	seen := make(map[models.Action]bool)
	var actions []models.Action

	add := func(a models.Action) {
		if !seen[a] && len(actions) < p.maxActions {
			seen[a] = true
			actions = append(actions, a)
		}
	}

	for _, name := range checkPriority {
		verdict, ok := eval.Check(name)
		if !ok || verdict.Status == models.StatusPass {
			continue
		}
		for _, issue := range verdict.Issues {
			for _, a := range matchTable(issue) {
				add(a)
			}
		}
	}

	// The goal itself triggers actions even when no check names them; this
	// is what pulls an artifact toward features the checks cannot see.
	if !eval.GoalMet {
		for _, a := range matchTable(goal) {
			add(a)
		}
	}

	if len(actions) == 0 {
		actions = append(actions, models.ActionGeneral)
	}

	p.log.Debug("plan derived",
		zap.Int("actions", len(actions)),
		zap.Float64("score", eval.Score))
	return actions
}

// matchTable returns every action whose trigger terms appear in text,
// in table order.
func matchTable(text string) []models.Action {
	lower := strings.ToLower(text)
	var matched []models.Action
	for _, entry := range keywordTable {
		for _, term := range entry.terms {
			if strings.Contains(lower, term) {
				matched = append(matched, entry.action)
				break
			}
		}
	}
	return matched
}
