// Package export publishes a finished artifact to GitHub: the artifact
// directory becomes a repository, gets committed, and is pushed to a remote
// created through the GitHub API.
package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"

	"github.com/forgeloop/forgeloop/internal/config"
)

// Exporter pushes artifacts to GitHub. Unlike the loop's internals, export
// failures surface directly to the caller: there is no self-correction to
// fall back on here.
type Exporter struct {
	cfg config.GitHubConfig
	log *zap.Logger

	// newClient is swapped in tests to point at a stub API server.
	newClient func(token string) *github.Client
}

// New returns an Exporter using the given author identity and visibility.
func New(cfg config.GitHubConfig, log *zap.Logger) *Exporter {
	return &Exporter{
		cfg: cfg,
		log: log.Named("export"),
		newClient: func(token string) *github.Client {
			return github.NewClient(nil).WithAuthToken(token)
		},
	}
}

// Export commits the artifact at root and pushes it to a repository named
// repoName under org (or the authenticated user when org is empty). The
// returned URL is the repository's web address.
func (e *Exporter) Export(ctx context.Context, root, repoName, org, token string) (string, error) {
	if token == "" {
		return "", errors.New("a github token is required for export")
	}
	if repoName == "" {
		return "", errors.New("a repository name is required for export")
	}

	repo, err := e.ensureRepository(root)
	if err != nil {
		return "", err
	}
	if err := e.commitAll(repo); err != nil {
		return "", err
	}

	client := e.newClient(token)
	htmlURL, cloneURL, err := e.ensureRemoteRepo(ctx, client, repoName, org)
	if err != nil {
		return "", err
	}

	if err := e.push(ctx, repo, cloneURL, token); err != nil {
		return "", err
	}

	e.log.Info("artifact exported",
		zap.String("repo", repoName),
		zap.String("url", htmlURL))
	return htmlURL, nil
}

func (e *Exporter) ensureRepository(root string) (*git.Repository, error) {
	repo, err := git.PlainInit(root, false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		repo, err = git.PlainOpen(root)
	}
	if err != nil {
		return nil, fmt.Errorf("preparing artifact repository: %w", err)
	}
	return repo, nil
}

func (e *Exporter) commitAll(repo *git.Repository) error {
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("staging artifact: %w", err)
	}
	_, err = wt.Commit("Export build artifact", &git.CommitOptions{
		Author: &object.Signature{
			Name:  e.cfg.AuthorName,
			Email: e.cfg.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil && !errors.Is(err, git.ErrEmptyCommit) {
		return fmt.Errorf("committing artifact: %w", err)
	}
	return nil
}

// ensureRemoteRepo creates the repository through the API, tolerating the
// name already existing, and returns its web and clone URLs.
func (e *Exporter) ensureRemoteRepo(ctx context.Context, client *github.Client, repoName, org string) (string, string, error) {
	created, _, err := client.Repositories.Create(ctx, org, &github.Repository{
		Name:        github.String(repoName),
		Private:     github.Bool(e.cfg.Private),
		Description: github.String("Generated by forgeloop"),
	})
	if err == nil {
		return created.GetHTMLURL(), created.GetCloneURL(), nil
	}

	var apiErr *github.ErrorResponse
	if !errors.As(err, &apiErr) || apiErr.Response == nil || apiErr.Response.StatusCode != http.StatusUnprocessableEntity {
		return "", "", fmt.Errorf("creating remote repository: %w", err)
	}

	// 422: the repository already exists. Resolve the owner and reuse it.
	owner := org
	if owner == "" {
		user, _, err := client.Users.Get(ctx, "")
		if err != nil {
			return "", "", fmt.Errorf("resolving repository owner: %w", err)
		}
		owner = user.GetLogin()
	}
	existing, _, err := client.Repositories.Get(ctx, owner, repoName)
	if err != nil {
		return "", "", fmt.Errorf("looking up existing repository: %w", err)
	}
	return existing.GetHTMLURL(), existing.GetCloneURL(), nil
}

func (e *Exporter) push(ctx context.Context, repo *git.Repository, cloneURL, token string) error {
	_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{cloneURL},
	})
	if err != nil && !errors.Is(err, git.ErrRemoteExists) {
		return fmt.Errorf("configuring remote: %w", err)
	}

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		Auth: &githttp.BasicAuth{
			Username: "x-access-token",
			Password: token,
		},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pushing artifact: %w", err)
	}
	return nil
}
