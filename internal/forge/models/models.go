// Package models defines the shared data types exchanged between the
// convergence loop, the evaluation engine, the feedback planner and the
// history store.
package models

import "time"

// CheckStatus is the outcome of a single evaluation check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusFail CheckStatus = "fail"
	StatusWarn CheckStatus = "warn"
)

// Check names, in the fixed order the engine runs them.
const (
	CheckStructure     = "structure"
	CheckCodeQuality   = "code_quality"
	CheckFunctionality = "functionality"
	CheckGoalAlignment = "goal_alignment"
	CheckBestPractices = "best_practices"
)

// Action is a discrete improvement directive the planner hands to the
// producer. The vocabulary is fixed; ActionGeneral is the fallback when no
// keyword matches.
type Action string

const (
	ActionNavigation     Action = "navigation"
	ActionHero           Action = "hero"
	ActionAuthentication Action = "authentication"
	ActionAPI            Action = "api"
	ActionDatabase       Action = "database"
	ActionResponsive     Action = "responsive"
	ActionStyling        Action = "styling"
	ActionComponents     Action = "components"
	ActionGeneral        Action = "general-improvement"
)

// StopReason records why a run reached its terminal state.
type StopReason string

const (
	ReasonGoalAchieved    StopReason = "goal_achieved"
	ReasonBudgetExhausted StopReason = "budget_exhausted"
	ReasonStoppedExternal StopReason = "stopped_externally"
	// ReasonInitFailed marks a run that died setting up the artifact,
	// before the first iteration could start.
	ReasonInitFailed StopReason = "initialization_failed"
)

// Verdict is the immutable result of one check. Once produced it is never
// modified; carried-over issues are attached to the next evaluation instead.
type Verdict struct {
	Status    CheckStatus `json:"status"`
	Issues    []string    `json:"issues,omitempty"`
	Positives []string    `json:"positives,omitempty"`
}

// CheckResult pairs a check name with its verdict. A slice of these, rather
// than a map, keeps the reported order stable.
type CheckResult struct {
	Name    string  `json:"name"`
	Verdict Verdict `json:"verdict"`
}

// Evaluation is the full output of one pass of the evaluation engine.
type Evaluation struct {
	Checks    []CheckResult `json:"checks"`
	Score     float64       `json:"score"`
	GoalMet   bool          `json:"goal_met"`
	Timestamp time.Time     `json:"timestamp"`
}

// Check returns the verdict for the named check and whether it was present.
func (e Evaluation) Check(name string) (Verdict, bool) {
	for _, c := range e.Checks {
		if c.Name == name {
			return c.Verdict, true
		}
	}
	return Verdict{}, false
}

// TotalIssues sums the issue count across all checks.
func (e Evaluation) TotalIssues() int {
	n := 0
	for _, c := range e.Checks {
		n += len(c.Verdict.Issues)
	}
	return n
}

// TotalPositives sums the positive observations across all checks.
func (e Evaluation) TotalPositives() int {
	n := 0
	for _, c := range e.Checks {
		n += len(c.Verdict.Positives)
	}
	return n
}

// IterationRecord is the durable trace of a single completed iteration.
// Iteration numbers are 1-based and gap-free within a run.
type IterationRecord struct {
	Iteration  int       `json:"iteration"`
	Score      float64   `json:"score"`
	GoalMet    bool      `json:"goal_met"`
	IssueCount int       `json:"issue_count"`
	Actions    []Action  `json:"actions,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// RunSummary is the terminal snapshot of a run, flushed exactly once.
type RunSummary struct {
	RunID           string            `json:"run_id"`
	Spec            string            `json:"spec"`
	Goal            string            `json:"goal"`
	TotalIterations int               `json:"total_iterations"`
	Reason          StopReason        `json:"reason"`
	Records         []IterationRecord `json:"records"`
	CompletedAt     time.Time         `json:"completed_at"`
}

// ProducerResult is the outcome of a producer operation. A failed build or
// install is reported, not raised: Output feeds the next evaluation.
type ProducerResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
}

// Status is a consistent point-in-time snapshot of a run.
type Status struct {
	RunID         string        `json:"run_id"`
	Goal          string        `json:"goal"`
	Iteration     int           `json:"iteration"`
	MaxIterations int           `json:"max_iterations"`
	Running       bool          `json:"running"`
	GoalMet       bool          `json:"goal_met"`
	LatestScore   float64       `json:"latest_score"`
	Reason        StopReason    `json:"reason,omitempty"`
	Elapsed       time.Duration `json:"elapsed"`
}
