package mcp

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/forgeloop/forgeloop/internal/forge/models"
)

// registerResources exposes read-only run and configuration snapshots.
func (s *Server) registerResources() {
	statusResource := mcplib.NewResource(
		"forgeloop://status",
		"Build status",
		mcplib.WithResourceDescription("Snapshot of the current run: iteration, score, goal progress."),
		mcplib.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(statusResource, s.readStatusResource)

	configResource := mcplib.NewResource(
		"forgeloop://config",
		"Server configuration",
		mcplib.WithResourceDescription("Effective loop and producer configuration. Secrets are redacted."),
		mcplib.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(configResource, s.readConfigResource)
}

func (s *Server) readStatusResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	status := models.Status{}
	if runner := s.currentRunner(); runner != nil {
		status = runner.Status()
	}
	return jsonResourceContents(req.Params.URI, status)
}

func (s *Server) readConfigResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	view := map[string]any{}
	if s.deps.Config != nil {
		view["loop"] = s.deps.Config.Loop
		view["producer"] = s.deps.Config.Producer
		view["server"] = map[string]string{
			"transport": s.deps.Config.Server.Transport,
			"addr":      s.deps.Config.Server.Addr,
		}
	}
	view["artifact_root"] = s.deps.ArtifactRoot
	return jsonResourceContents(req.Params.URI, view)
}

func jsonResourceContents(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
