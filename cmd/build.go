package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forgeloop/forgeloop/internal/config"
	"github.com/forgeloop/forgeloop/internal/forge/evaluate"
	"github.com/forgeloop/forgeloop/internal/forge/history"
	"github.com/forgeloop/forgeloop/internal/forge/loop"
	"github.com/forgeloop/forgeloop/internal/forge/models"
	"github.com/forgeloop/forgeloop/internal/forge/plan"
	"github.com/forgeloop/forgeloop/internal/forge/producer/webstack"
	"github.com/forgeloop/forgeloop/internal/observability"
)

type buildOptions struct {
	spec          string
	goal          string
	dir           string
	maxIterations int
}

// buildRunFunc lets tests swap out the run execution.
type buildRunFunc func(ctx context.Context, cfg *config.Config, opts buildOptions, log *zap.Logger) (models.RunSummary, error)

func newBuildCmd(run buildRunFunc) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run a convergence build in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadedConfig
			if opts.maxIterations >= 0 {
				cfg.Loop.MaxIterations = opts.maxIterations
			}
			summary, err := run(cmd.Context(), cfg, opts, observability.GetLogger())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s finished: %s after %d iteration(s)\n",
				summary.RunID, summary.Reason, summary.TotalIterations)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.spec, "spec", "", "description of the project to build")
	cmd.Flags().StringVar(&opts.goal, "goal", "", "completion goal to converge toward")
	cmd.Flags().StringVar(&opts.dir, "dir", "./artifact", "artifact directory")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", -1, "iteration budget (overrides config when set)")
	_ = cmd.MarkFlagRequired("goal")
	return cmd
}

// runBuild wires the components for a single foreground run.
func runBuild(ctx context.Context, cfg *config.Config, opts buildOptions, log *zap.Logger) (models.RunSummary, error) {
	runner := newRunner(cfg, opts.dir, opts.spec, opts.goal, log)
	return runner.Run(ctx)
}

// newRunner assembles the standard component stack for one run.
func newRunner(cfg *config.Config, dir, spec, goal string, log *zap.Logger) *loop.Runner {
	prod := webstack.New(dir, cfg.Producer, cfg.Loop, log)
	engine := evaluate.NewEngine(cfg.Loop.Scoring, log)
	planner := plan.NewPlanner(cfg.Loop.MaxActions, log)
	store := history.NewFileStore(dir, log)
	return loop.NewRunner(cfg.Loop, dir, spec, goal, prod, engine, planner, store, log)
}
