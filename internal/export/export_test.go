package export

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-github/v58/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/forgeloop/forgeloop/internal/config"
)

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	return New(config.GitHubConfig{
		AuthorName:  "forgeloop",
		AuthorEmail: "forgeloop@localhost",
	}, zaptest.NewLogger(t))
}

// stubAPI points the exporter's GitHub client at a local test server.
func stubAPI(t *testing.T, e *Exporter, handler http.Handler) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	e.newClient = func(string) *github.Client {
		client := github.NewClient(nil)
		base, err := url.Parse(srv.URL + "/")
		require.NoError(t, err)
		client.BaseURL = base
		return client
	}
}

func artifactDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644))
	return dir
}

func TestExportRequiresTokenAndRepoName(t *testing.T) {
	e := newTestExporter(t)

	_, err := e.Export(context.Background(), t.TempDir(), "site", "", "")
	assert.ErrorContains(t, err, "token")

	_, err = e.Export(context.Background(), t.TempDir(), "", "", "tok")
	assert.ErrorContains(t, err, "repository name")
}

func TestEnsureRepositoryAndCommit(t *testing.T) {
	e := newTestExporter(t)
	dir := artifactDir(t)

	repo, err := e.ensureRepository(dir)
	require.NoError(t, err)
	require.NoError(t, e.commitAll(repo))

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "forgeloop", commit.Author.Name)

	// Reopening an existing repository works, and committing with nothing
	// staged is tolerated.
	repo, err = e.ensureRepository(dir)
	require.NoError(t, err)
	require.NoError(t, e.commitAll(repo))
}

func TestEnsureRemoteRepoCreates(t *testing.T) {
	e := newTestExporter(t)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/repos", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"name":"site","html_url":"https://github.com/me/site","clone_url":"https://github.com/me/site.git"}`)
	})
	stubAPI(t, e, mux)

	htmlURL, cloneURL, err := e.ensureRemoteRepo(context.Background(), e.newClient("tok"), "site", "")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/me/site", htmlURL)
	assert.Equal(t, "https://github.com/me/site.git", cloneURL)
}

func TestEnsureRemoteRepoReusesExisting(t *testing.T) {
	e := newTestExporter(t)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orgs/acme/repos", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"name already exists on this account"}`)
	})
	mux.HandleFunc("GET /repos/acme/site", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"name":"site","html_url":"https://github.com/acme/site","clone_url":"https://github.com/acme/site.git"}`)
	})
	stubAPI(t, e, mux)

	htmlURL, cloneURL, err := e.ensureRemoteRepo(context.Background(), e.newClient("tok"), "site", "acme")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/site", htmlURL)
	assert.Equal(t, "https://github.com/acme/site.git", cloneURL)
}

func TestEnsureRemoteRepoPropagatesOtherErrors(t *testing.T) {
	e := newTestExporter(t)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/repos", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"bad credentials"}`)
	})
	stubAPI(t, e, mux)

	_, _, err := e.ensureRemoteRepo(context.Background(), e.newClient("tok"), "site", "")
	assert.ErrorContains(t, err, "creating remote repository")
}
