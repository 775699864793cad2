// Package config centralizes runtime configuration. Values are resolved by
// viper from an optional config file, environment variables with the
// FORGELOOP_ prefix, and the defaults registered in SetDefaults.
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the root configuration object handed to every component.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger"`
	Loop        LoopConfig        `mapstructure:"loop"`
	Producer    ProducerConfig    `mapstructure:"producer"`
	GitHub      GitHubConfig      `mapstructure:"github"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Server      ServerConfig      `mapstructure:"server"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"` // console or json
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables the rotating file sink alongside the console.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// LoopConfig bounds the convergence loop.
type LoopConfig struct {
	MaxIterations     int           `mapstructure:"max_iterations"`
	ValidateEvery     int           `mapstructure:"validate_every"`
	IterationInterval time.Duration `mapstructure:"iteration_interval"`
	ProducerTimeout   time.Duration `mapstructure:"producer_timeout"`
	InstallTimeout    time.Duration `mapstructure:"install_timeout"`
	BuildTimeout      time.Duration `mapstructure:"build_timeout"`
	MaxActions        int           `mapstructure:"max_actions"`
	Scoring           ScoringConfig `mapstructure:"scoring"`
}

// ScoringConfig exposes the scoring constants. The defaults are the
// calibrated values; changing them changes what "converged" means.
type ScoringConfig struct {
	GoalThreshold       float64 `mapstructure:"goal_threshold"`
	IssuePenaltyWeight  float64 `mapstructure:"issue_penalty_weight"`
	IssuePenaltyCap     float64 `mapstructure:"issue_penalty_cap"`
	PositiveBonusWeight float64 `mapstructure:"positive_bonus_weight"`
	PositiveBonusCap    float64 `mapstructure:"positive_bonus_cap"`
	AlignmentFraction   float64 `mapstructure:"alignment_fraction"`
}

// ProducerConfig selects and tunes the producer implementation.
type ProducerConfig struct {
	Stack    string `mapstructure:"stack"`
	Database string `mapstructure:"database"`
}

// GitHubConfig drives the exporter. The token is only ever read from the
// environment or the credential store, never from a config file on disk.
type GitHubConfig struct {
	Token       string `mapstructure:"token"`
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
	Private     bool   `mapstructure:"private"`
}

// CredentialsConfig locates the credential store file.
type CredentialsConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the remote control surface.
type ServerConfig struct {
	Transport string `mapstructure:"transport"` // stdio or http
	Addr      string `mapstructure:"addr"`
}

// SetDefaults registers every default value on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file.enabled", false)
	v.SetDefault("logger.file.path", "forgeloop.log")
	v.SetDefault("logger.file.max_size_mb", 50)
	v.SetDefault("logger.file.max_backups", 3)
	v.SetDefault("logger.file.max_age_days", 14)
	v.SetDefault("logger.file.compress", true)

	v.SetDefault("loop.max_iterations", 50)
	v.SetDefault("loop.validate_every", 3)
	v.SetDefault("loop.iteration_interval", 2*time.Second)
	v.SetDefault("loop.producer_timeout", 2*time.Minute)
	v.SetDefault("loop.install_timeout", 5*time.Minute)
	v.SetDefault("loop.build_timeout", 5*time.Minute)
	v.SetDefault("loop.max_actions", 5)
	v.SetDefault("loop.scoring.goal_threshold", 85.0)
	v.SetDefault("loop.scoring.issue_penalty_weight", 2.0)
	v.SetDefault("loop.scoring.issue_penalty_cap", 30.0)
	v.SetDefault("loop.scoring.positive_bonus_weight", 1.0)
	v.SetDefault("loop.scoring.positive_bonus_cap", 10.0)
	v.SetDefault("loop.scoring.alignment_fraction", 0.5)

	v.SetDefault("producer.stack", "webstack")
	v.SetDefault("producer.database", "postgresql")

	v.SetDefault("github.author_name", "forgeloop")
	v.SetDefault("github.author_email", "forgeloop@localhost")
	v.SetDefault("github.private", false)

	v.SetDefault("credentials.path", "")

	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.addr", ":8573")
}

// NewConfigFromViper unmarshals and validates a Config from the given viper
// instance. Secrets are bound to their environment variables here so they
// resolve even without a config file.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	if err := v.BindEnv("github.token", "FORGELOOP_GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("binding github token env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if cfg.Credentials.Path == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.Credentials.Path = home + "/.forgeloop/credentials.yaml"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// New returns a validated Config built purely from defaults, for callers
// that construct components directly (mostly tests).
func New() (*Config, error) {
	return NewConfigFromViper(viper.New())
}

// Validate checks every section and reports the first inconsistency.
func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger config: %w", err)
	}
	if err := c.Loop.Validate(); err != nil {
		return fmt.Errorf("loop config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	return nil
}

func (l *LoggerConfig) Validate() error {
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
	return nil
}

func (l *LoopConfig) Validate() error {
	if l.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be >= 0, got %d", l.MaxIterations)
	}
	if l.ValidateEvery < 1 {
		return fmt.Errorf("validate_every must be >= 1, got %d", l.ValidateEvery)
	}
	if l.MaxActions < 1 {
		return fmt.Errorf("max_actions must be >= 1, got %d", l.MaxActions)
	}
	if l.Scoring.GoalThreshold < 0 || l.Scoring.GoalThreshold > 100 {
		return fmt.Errorf("scoring.goal_threshold must be within [0,100], got %v", l.Scoring.GoalThreshold)
	}
	if l.Scoring.AlignmentFraction <= 0 || l.Scoring.AlignmentFraction > 1 {
		return fmt.Errorf("scoring.alignment_fraction must be within (0,1], got %v", l.Scoring.AlignmentFraction)
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	switch s.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("unknown transport %q", s.Transport)
	}
	if s.Transport == "http" && s.Addr == "" {
		return fmt.Errorf("http transport requires an address")
	}
	return nil
}
