// Package loop drives the convergence run: a strictly sequential state
// machine alternating the producer and the evaluation engine until the goal
// is certified met, the iteration budget runs out, or a stop is requested.
package loop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/forgeloop/forgeloop/internal/config"
	"github.com/forgeloop/forgeloop/internal/forge/history"
	"github.com/forgeloop/forgeloop/internal/forge/models"
	"github.com/forgeloop/forgeloop/internal/forge/producer"
)

// State names the phase a run is in. Transitions are strictly sequential:
// Initializing -> Iterating <-> Validating -> Terminated.
type State string

const (
	StateInitializing State = "initializing"
	StateIterating    State = "iterating"
	StateValidating   State = "validating"
	StateTerminated   State = "terminated"
)

// lockFileName is the advisory lock guarding an artifact against
// concurrent runs, from this process or another.
const lockFileName = ".forgeloop.lock"

var (
	// ErrArtifactLocked reports another run already owns the artifact.
	ErrArtifactLocked = errors.New("artifact is locked by another run")
	// ErrAlreadyStarted reports a Runner being reused for a second run.
	ErrAlreadyStarted = errors.New("runner has already been started")
)

// Evaluator scores the artifact. carried holds issues from a failed
// validation build, attached to this pass.
type Evaluator interface {
	Evaluate(ctx context.Context, root, goal string, carried []string) (models.Evaluation, error)
}

// Planner derives the next actions from an evaluation.
type Planner interface {
	Plan(eval models.Evaluation, goal string) []models.Action
}

// Runner executes exactly one run. All components are injected; the Runner
// owns the history store exclusively while the run is live.
type Runner struct {
	cfg       config.LoopConfig
	producer  producer.Producer
	evaluator Evaluator
	planner   Planner
	store     history.Store
	log       *zap.Logger
	limiter   *rate.Limiter

	runID string
	spec  string
	goal  string
	root  string

	stopRequested atomic.Bool
	started       atomic.Bool
	done          chan struct{}

	mu          sync.Mutex
	state       State
	iteration   int
	latestScore float64
	goalMet     bool
	reason      models.StopReason
	startedAt   time.Time
}

// NewRunner wires a run for the artifact at root. The run does not begin
// until Run is called.
func NewRunner(cfg config.LoopConfig, root, spec, goal string, p producer.Producer, e Evaluator, pl Planner, store history.Store, log *zap.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		producer:  p,
		evaluator: e,
		planner:   pl,
		store:     store,
		log:       log.Named("loop"),
		limiter:   rate.NewLimiter(rate.Every(cfg.IterationInterval), 1),
		runID:     uuid.New().String(),
		spec:      spec,
		goal:      goal,
		root:      root,
		done:      make(chan struct{}),
		state:     StateInitializing,
	}
}

// RunID identifies this run.
func (r *Runner) RunID() string { return r.runID }

// Done is closed when the run reaches its terminal state.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Stop requests a cooperative stop. It is idempotent and never interrupts
// an in-flight producer or evaluator call; the loop observes the request at
// the next iteration boundary, after the current iteration is recorded.
func (r *Runner) Stop() {
	if r.stopRequested.CompareAndSwap(false, true) {
		r.log.Info("stop requested", zap.String("run_id", r.runID))
	}
}

// Status returns a consistent snapshot of the run.
func (r *Runner) Status() models.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	var elapsed time.Duration
	if !r.startedAt.IsZero() {
		elapsed = time.Since(r.startedAt)
	}
	return models.Status{
		RunID:         r.runID,
		Goal:          r.goal,
		Iteration:     r.iteration,
		MaxIterations: r.cfg.MaxIterations,
		Running:       r.state != StateTerminated && !r.startedAt.IsZero(),
		GoalMet:       r.goalMet,
		LatestScore:   r.latestScore,
		Reason:        r.reason,
		Elapsed:       elapsed,
	}
}

// Run executes the state machine to completion and returns the flushed
// summary. Only start-time validation failures and context cancellation
// surface as errors; per-action and per-check failures are absorbed into
// the history and the score.
func (r *Runner) Run(ctx context.Context) (models.RunSummary, error) {
	if !r.started.CompareAndSwap(false, true) {
		return models.RunSummary{}, ErrAlreadyStarted
	}
	defer close(r.done)

	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return models.RunSummary{}, fmt.Errorf("preparing artifact directory: %w", err)
	}
	release, err := r.acquireLock()
	if err != nil {
		return models.RunSummary{}, err
	}
	defer release()

	r.mu.Lock()
	r.startedAt = time.Now()
	r.mu.Unlock()
	r.log.Info("run starting",
		zap.String("run_id", r.runID),
		zap.String("goal", r.goal),
		zap.Int("max_iterations", r.cfg.MaxIterations))

	// A zero budget terminates before any producer call.
	if r.cfg.MaxIterations == 0 {
		return r.terminate(models.ReasonBudgetExhausted)
	}

	if err := r.producer.CreateStructure(ctx); err != nil {
		r.setTerminated(models.ReasonInitFailed)
		return models.RunSummary{}, fmt.Errorf("creating artifact structure: %w", err)
	}

	var carried []string
	for i := 1; i <= r.cfg.MaxIterations; i++ {
		// Stop and cancellation are observed only here, at the iteration
		// boundary. An in-flight iteration always completes and records.
		if r.stopRequested.Load() {
			return r.terminate(models.ReasonStoppedExternal)
		}
		if err := ctx.Err(); err != nil {
			summary, _ := r.terminate(models.ReasonStoppedExternal)
			return summary, err
		}
		if i > 1 {
			if err := r.limiter.Wait(ctx); err != nil {
				summary, _ := r.terminate(models.ReasonStoppedExternal)
				return summary, err
			}
		}

		goalMet, nextCarried, err := r.iterate(ctx, i, carried)
		if err != nil {
			summary, _ := r.terminate(models.ReasonStoppedExternal)
			return summary, err
		}
		carried = nextCarried
		if goalMet {
			return r.terminate(models.ReasonGoalAchieved)
		}
	}

	return r.terminate(models.ReasonBudgetExhausted)
}

// iterate runs one full iteration: evaluate, record-or-improve, validate.
// It reports whether the goal was certified met and the issues to carry
// into the next evaluation. The only errors returned are cancellation and
// history append failures; everything else becomes score signal.
func (r *Runner) iterate(ctx context.Context, iteration int, carried []string) (bool, []string, error) {
	r.setState(StateIterating, iteration)

	eval, err := r.evaluator.Evaluate(ctx, r.root, r.goal, carried)
	if err != nil {
		return false, nil, fmt.Errorf("evaluating iteration %d: %w", iteration, err)
	}
	r.setScore(eval.Score, eval.GoalMet)

	var actions []models.Action
	var nextCarried []string
	if eval.GoalMet {
		// Goal achieved: record, then terminate. No further producer calls.
		r.log.Info("goal certified met",
			zap.Int("iteration", iteration),
			zap.Float64("score", eval.Score))
	} else {
		actions = r.planner.Plan(eval, r.goal)
		for _, action := range actions {
			res := r.applyWithTimeout(ctx, action)
			if !res.Success {
				r.log.Warn("action failed",
					zap.String("action", string(action)),
					zap.String("output", res.Output))
			}
		}
		if iteration == 1 {
			if res := r.producer.InstallDependencies(ctx); !res.Success {
				nextCarried = append(nextCarried, fmt.Sprintf("dependency install failed: %s", res.Output))
			}
		}
		if iteration%r.cfg.ValidateEvery == 0 {
			nextCarried = append(nextCarried, r.validate(ctx)...)
		}
	}

	rec := models.IterationRecord{
		Iteration:  iteration,
		Score:      eval.Score,
		GoalMet:    eval.GoalMet,
		IssueCount: eval.TotalIssues(),
		Actions:    actions,
		Timestamp:  time.Now().UTC(),
	}
	if err := r.store.Append(rec); err != nil {
		return false, nil, fmt.Errorf("recording iteration %d: %w", iteration, err)
	}

	return eval.GoalMet, nextCarried, nil
}

// validate runs the install-and-build pass. Failures come back as issues
// for the next evaluation; validation never terminates a run.
func (r *Runner) validate(ctx context.Context) []string {
	r.setState(StateValidating, 0)
	defer r.setState(StateIterating, 0)

	var issues []string
	if res := r.producer.InstallDependencies(ctx); !res.Success {
		issues = append(issues, fmt.Sprintf("dependency install failed: %s", res.Output))
		return issues
	}
	if res := r.producer.Build(ctx); !res.Success {
		issues = append(issues, fmt.Sprintf("build failed: %s", res.Output))
	}
	return issues
}

func (r *Runner) applyWithTimeout(ctx context.Context, action models.Action) models.ProducerResult {
	applyCtx, cancel := context.WithTimeout(ctx, r.cfg.ProducerTimeout)
	defer cancel()
	return r.producer.Apply(applyCtx, action)
}

// terminate flushes the summary exactly once and publishes the terminal
// state. Flush failure is logged, not returned; the in-memory history is
// still handed back to the caller.
func (r *Runner) terminate(reason models.StopReason) (models.RunSummary, error) {
	r.setTerminated(reason)

	summary := models.RunSummary{
		RunID:           r.runID,
		Spec:            r.spec,
		Goal:            r.goal,
		TotalIterations: r.store.Len(),
		Reason:          reason,
		Records:         r.store.All(),
		CompletedAt:     time.Now().UTC(),
	}
	if err := r.store.Flush(summary); err != nil {
		r.log.Error("flushing run summary", zap.Error(err))
	}

	r.log.Info("run terminated",
		zap.String("run_id", r.runID),
		zap.String("reason", string(reason)),
		zap.Int("iterations", summary.TotalIterations))
	return summary, nil
}

func (r *Runner) acquireLock() (func(), error) {
	path := filepath.Join(r.root, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			owner, _ := os.ReadFile(path)
			return nil, fmt.Errorf("%w (held by run %s)", ErrArtifactLocked, string(owner))
		}
		return nil, fmt.Errorf("acquiring artifact lock: %w", err)
	}
	_, werr := f.WriteString(r.runID)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing artifact lock: %w", errors.Join(werr, cerr))
	}
	return func() { os.Remove(path) }, nil
}

func (r *Runner) setState(state State, iteration int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	if iteration > 0 {
		r.iteration = iteration
	}
}

func (r *Runner) setScore(score float64, goalMet bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latestScore = score
	r.goalMet = goalMet
}

func (r *Runner) setTerminated(reason models.StopReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateTerminated
	r.reason = reason
}
