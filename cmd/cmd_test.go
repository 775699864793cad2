package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forgeloop/forgeloop/internal/config"
	"github.com/forgeloop/forgeloop/internal/forge/models"
)

func setTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.New()
	require.NoError(t, err)
	prev := loadedConfig
	loadedConfig = cfg
	t.Cleanup(func() { loadedConfig = prev })
	return cfg
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "build")
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "export")
	assert.Contains(t, names, "version")
}

func TestBuildCommandDelegates(t *testing.T) {
	setTestConfig(t)

	var gotOpts buildOptions
	var gotMax int
	fake := func(_ context.Context, cfg *config.Config, opts buildOptions, _ *zap.Logger) (models.RunSummary, error) {
		gotOpts = opts
		gotMax = cfg.Loop.MaxIterations
		return models.RunSummary{RunID: "run-1", Reason: models.ReasonGoalAchieved, TotalIterations: 3}, nil
	}

	cmd := newBuildCmd(fake)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--goal", "working checkout", "--spec", "a web shop", "--dir", "artifact", "--max-iterations", "7"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "working checkout", gotOpts.goal)
	assert.Equal(t, "a web shop", gotOpts.spec)
	assert.Equal(t, "artifact", gotOpts.dir)
	assert.Equal(t, 7, gotMax)
	assert.Contains(t, out.String(), "goal_achieved")
	assert.Contains(t, out.String(), "3 iteration(s)")
}

func TestBuildCommandRequiresGoal(t *testing.T) {
	setTestConfig(t)

	cmd := newBuildCmd(func(context.Context, *config.Config, buildOptions, *zap.Logger) (models.RunSummary, error) {
		t.Fatal("run must not be invoked")
		return models.RunSummary{}, nil
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--spec", "x"})

	assert.Error(t, cmd.Execute())
}

func TestServeCommandAppliesOverrides(t *testing.T) {
	setTestConfig(t)

	var gotOpts serveOptions
	fake := func(_ context.Context, _ *config.Config, opts serveOptions, _ *zap.Logger) error {
		gotOpts = opts
		return nil
	}

	cmd := newServeCmd(fake)
	cmd.SetArgs([]string{"--transport", "http", "--addr", ":9000", "--dir", "work"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "http", gotOpts.transport)
	assert.Equal(t, ":9000", gotOpts.addr)
	assert.Equal(t, "work", gotOpts.dir)
}

func TestExportCommandPrintsURL(t *testing.T) {
	setTestConfig(t)

	fake := func(_ context.Context, _ *config.Config, opts exportOptions, _ *zap.Logger) (string, error) {
		assert.Equal(t, "site", opts.repoName)
		return "https://github.com/me/site", nil
	}

	cmd := newExportCmd(fake)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--repo", "site"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "https://github.com/me/site")
}

func TestVersionCommand(t *testing.T) {
	cmd := newVersionCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "forgeloop")
}

func TestInitializeConfigMissingExplicitFile(t *testing.T) {
	_, err := initializeConfig("/nonexistent/forgeloop.yaml", "")
	assert.Error(t, err)
}

func TestInitializeConfigLevelOverride(t *testing.T) {
	cfg, err := initializeConfig("", "debug")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
}
