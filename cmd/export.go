package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forgeloop/forgeloop/internal/config"
	"github.com/forgeloop/forgeloop/internal/credentials"
	"github.com/forgeloop/forgeloop/internal/export"
	"github.com/forgeloop/forgeloop/internal/observability"
)

type exportOptions struct {
	dir      string
	repoName string
	org      string
}

type exportRunFunc func(ctx context.Context, cfg *config.Config, opts exportOptions, log *zap.Logger) (string, error)

func newExportCmd(run exportRunFunc) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Push a finished artifact to GitHub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := run(cmd.Context(), loadedConfig, opts, observability.GetLogger())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", url)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "./artifact", "artifact directory to export")
	cmd.Flags().StringVar(&opts.repoName, "repo", "", "repository name to create or reuse")
	cmd.Flags().StringVar(&opts.org, "org", "", "organization owning the repository")
	_ = cmd.MarkFlagRequired("repo")
	return cmd
}

// runExport resolves the token (config, then credential store) and pushes.
func runExport(ctx context.Context, cfg *config.Config, opts exportOptions, log *zap.Logger) (string, error) {
	token := cfg.GitHub.Token
	if token == "" {
		store, err := credentials.NewStore(cfg.Credentials.Path, log)
		if err != nil {
			return "", err
		}
		token, _ = store.Get("github")
	}

	exporter := export.New(cfg.GitHub, log)
	return exporter.Export(ctx, opts.dir, opts.repoName, opts.org, token)
}
