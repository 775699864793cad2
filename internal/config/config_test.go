package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, 50, cfg.Loop.MaxIterations)
	assert.Equal(t, 3, cfg.Loop.ValidateEvery)
	assert.Equal(t, 5, cfg.Loop.MaxActions)
	assert.Equal(t, 2*time.Second, cfg.Loop.IterationInterval)
	assert.InDelta(t, 85.0, cfg.Loop.Scoring.GoalThreshold, 1e-9)
	assert.InDelta(t, 2.0, cfg.Loop.Scoring.IssuePenaltyWeight, 1e-9)
	assert.InDelta(t, 30.0, cfg.Loop.Scoring.IssuePenaltyCap, 1e-9)
	assert.InDelta(t, 1.0, cfg.Loop.Scoring.PositiveBonusWeight, 1e-9)
	assert.InDelta(t, 10.0, cfg.Loop.Scoring.PositiveBonusCap, 1e-9)
	assert.Equal(t, "webstack", cfg.Producer.Stack)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.NotEmpty(t, cfg.Credentials.Path)
}

func TestOverridesFromViper(t *testing.T) {
	v := viper.New()
	v.Set("loop.max_iterations", 7)
	v.Set("loop.scoring.goal_threshold", 90)
	v.Set("logger.format", "json")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Loop.MaxIterations)
	assert.InDelta(t, 90.0, cfg.Loop.Scoring.GoalThreshold, 1e-9)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestGitHubTokenFromEnvironment(t *testing.T) {
	t.Setenv("FORGELOOP_GITHUB_TOKEN", "ghp_from_env")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "ghp_from_env", cfg.GitHub.Token)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		set  func(v *viper.Viper)
	}{
		{"negative max iterations", func(v *viper.Viper) { v.Set("loop.max_iterations", -1) }},
		{"zero validate every", func(v *viper.Viper) { v.Set("loop.validate_every", 0) }},
		{"zero max actions", func(v *viper.Viper) { v.Set("loop.max_actions", 0) }},
		{"threshold out of range", func(v *viper.Viper) { v.Set("loop.scoring.goal_threshold", 120) }},
		{"alignment fraction out of range", func(v *viper.Viper) { v.Set("loop.scoring.alignment_fraction", 0) }},
		{"unknown logger format", func(v *viper.Viper) { v.Set("logger.format", "xml") }},
		{"unknown transport", func(v *viper.Viper) { v.Set("server.transport", "carrier-pigeon") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := viper.New()
			tc.set(v)
			_, err := NewConfigFromViper(v)
			assert.Error(t, err)
		})
	}
}
