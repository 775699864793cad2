package mcp

import (
	"context"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeloop/forgeloop/internal/config"
)

func readReq(uri string) mcplib.ReadResourceRequest {
	req := mcplib.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func TestStatusResourceWithoutRun(t *testing.T) {
	s := newTestServer(t, ServerDeps{NewRunner: immediateFactory(t)})

	contents, err := s.readStatusResource(context.Background(), readReq("forgeloop://status"))
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "forgeloop://status", text.URI)
	assert.Contains(t, text.Text, `"running": false`)
}

func TestConfigResourceRedactsSecrets(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	cfg.GitHub.Token = "ghp_secret"

	s := newTestServer(t, ServerDeps{
		NewRunner:    immediateFactory(t),
		Config:       cfg,
		ArtifactRoot: "/tmp/artifact",
	})

	contents, err := s.readConfigResource(context.Background(), readReq("forgeloop://config"))
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.NotContains(t, text.Text, "ghp_secret")
	assert.Contains(t, text.Text, "/tmp/artifact")
}
