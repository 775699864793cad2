// Package cmd contains the forgeloop command tree. Commands stay thin:
// flag parsing and wiring live here, behavior lives in internal packages.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forgeloop/forgeloop/internal/config"
	"github.com/forgeloop/forgeloop/internal/observability"
)

var (
	cfgFile  string
	logLevel string
)

// loadedConfig is populated by the root PersistentPreRunE and consumed by
// every subcommand.
var loadedConfig *config.Config

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forgeloop",
		Short: "Iterative build-review convergence loop",
		Long: `forgeloop alternates a producer that mutates a project artifact with an
evaluation engine that scores it against a goal, iterating until the goal is
certified met or the budget runs out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := initializeConfig(cfgFile, logLevel)
			if err != nil {
				return err
			}
			loadedConfig = cfg
			return observability.InitializeLogger(cfg.Logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./forgeloop.yaml, then ~/.forgeloop/forgeloop.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(
		newBuildCmd(runBuild),
		newServeCmd(runServe),
		newExportCmd(runExport),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree with the process context.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// initializeConfig resolves configuration from file, environment and
// defaults. A missing config file is fine; a malformed one is not.
func initializeConfig(file, levelOverride string) (*config.Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("forgeloop")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.forgeloop")
	}

	v.SetEnvPrefix("FORGELOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if levelOverride != "" {
		v.Set("logger.level", levelOverride)
	}
	return config.NewConfigFromViper(v)
}
