package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forgeloop/forgeloop/internal/config"
	"github.com/forgeloop/forgeloop/internal/credentials"
	"github.com/forgeloop/forgeloop/internal/export"
	"github.com/forgeloop/forgeloop/internal/forge/loop"
	"github.com/forgeloop/forgeloop/internal/mcp"
	"github.com/forgeloop/forgeloop/internal/observability"
)

type serveOptions struct {
	dir       string
	transport string
	addr      string
}

type serveRunFunc func(ctx context.Context, cfg *config.Config, opts serveOptions, log *zap.Logger) error

func newServeCmd(run serveRunFunc) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the build loop over an MCP tool server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), loadedConfig, opts, observability.GetLogger())
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "./artifact", "artifact directory runs operate on")
	cmd.Flags().StringVar(&opts.transport, "transport", "", "transport: stdio or http (overrides config)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address for the http transport (overrides config)")
	return cmd
}

// runServe wires the MCP server around a per-run component factory and
// serves until the context is canceled.
func runServe(ctx context.Context, cfg *config.Config, opts serveOptions, log *zap.Logger) error {
	if opts.transport != "" {
		cfg.Server.Transport = opts.transport
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	creds, err := credentials.NewStore(cfg.Credentials.Path, log)
	if err != nil {
		return err
	}

	factory := func(spec, goal string, maxIterations int) (*loop.Runner, error) {
		runCfg := *cfg
		runCfg.Loop.MaxIterations = maxIterations
		if err := runCfg.Loop.Validate(); err != nil {
			return nil, err
		}
		return newRunner(&runCfg, opts.dir, spec, goal, log), nil
	}

	server, err := mcp.NewServer(
		mcp.ServerConfig{
			Name:      "forgeloop",
			Version:   Version,
			Transport: cfg.Server.Transport,
			Addr:      cfg.Server.Addr,
		},
		mcp.ServerDeps{
			NewRunner:    factory,
			Exporter:     export.New(cfg.GitHub, log),
			Credentials:  creds,
			ArtifactRoot: opts.dir,
			Config:       cfg,
			Logger:       log,
		},
	)
	if err != nil {
		return err
	}
	return server.Start(ctx)
}
