package mcp

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// defaultMaxIterations applies when start_build omits the budget.
const defaultMaxIterations = 50

// registerTools wires the five build-control tools.
func (s *Server) registerTools() {
	startBuild := mcplib.NewTool("start_build",
		mcplib.WithDescription("Start an iterative build run toward the given goal. Fails if a run is already active."),
		mcplib.WithString("spec",
			mcplib.Required(),
			mcplib.Description("Free-text description of the project to build."),
		),
		mcplib.WithString("goal",
			mcplib.Required(),
			mcplib.Description("The completion goal the build converges toward."),
		),
		mcplib.WithNumber("max_iterations",
			mcplib.Description("Iteration budget before the run gives up. Defaults to 50."),
		),
	)

	getStatus := mcplib.NewTool("get_build_status",
		mcplib.WithDescription("Report the current run's iteration, score and goal progress."),
	)

	stopBuild := mcplib.NewTool("stop_build",
		mcplib.WithDescription("Request a cooperative stop. The in-flight iteration completes and is recorded."),
	)

	exportTool := mcplib.NewTool("export_to_github",
		mcplib.WithDescription("Commit the artifact and push it to a GitHub repository."),
		mcplib.WithString("repo_name",
			mcplib.Required(),
			mcplib.Description("Name of the repository to create or reuse."),
		),
		mcplib.WithString("token",
			mcplib.Description("GitHub token. Falls back to the credential store when omitted."),
		),
		mcplib.WithString("organization",
			mcplib.Description("Organization owning the repository. Defaults to the authenticated user."),
		),
	)

	requestCredentials := mcplib.NewTool("request_credentials",
		mcplib.WithDescription("Check which of the named services have credentials available."),
		mcplib.WithArray("required_services",
			mcplib.Required(),
			mcplib.Description("Service names to check, e.g. github, database."),
			mcplib.Items(map[string]any{"type": "string"}),
		),
	)

	s.mcpServer.AddTools(
		mcpserver.ServerTool{Tool: startBuild, Handler: s.handleStartBuild},
		mcpserver.ServerTool{Tool: getStatus, Handler: s.handleGetBuildStatus},
		mcpserver.ServerTool{Tool: stopBuild, Handler: s.handleStopBuild},
		mcpserver.ServerTool{Tool: exportTool, Handler: s.handleExportToGitHub},
		mcpserver.ServerTool{Tool: requestCredentials, Handler: s.handleRequestCredentials},
	)
}

func (s *Server) handleStartBuild(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := req.GetArguments()

	spec, ok := stringArg(args, "spec")
	if !ok {
		return mcplib.NewToolResultError("spec is required"), nil
	}
	goal, ok := stringArg(args, "goal")
	if !ok {
		return mcplib.NewToolResultError("goal is required"), nil
	}
	maxIterations := defaultMaxIterations
	if raw, ok := args["max_iterations"]; ok {
		// JSON numbers arrive as float64.
		f, ok := raw.(float64)
		if !ok || f < 0 {
			return mcplib.NewToolResultError("max_iterations must be a non-negative number"), nil
		}
		maxIterations = int(f)
	}

	status, err := s.startRun(spec, goal, maxIterations)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to start build", err), nil
	}

	s.log.Info("build started",
		zap.String("run_id", status.RunID),
		zap.Int("max_iterations", maxIterations))
	return toolResultJSON(status)
}

func (s *Server) handleGetBuildStatus(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	runner := s.currentRunner()
	if runner == nil {
		return mcplib.NewToolResultError("no build has been started"), nil
	}
	return toolResultJSON(runner.Status())
}

func (s *Server) handleStopBuild(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	runner := s.currentRunner()
	if runner == nil {
		return mcplib.NewToolResultError("no build has been started"), nil
	}
	runner.Stop()
	return mcplib.NewToolResultText(fmt.Sprintf("stop requested for run %s; the current iteration will complete and be recorded", runner.RunID())), nil
}

func (s *Server) handleExportToGitHub(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.deps.Exporter == nil {
		return mcplib.NewToolResultError("export is not configured"), nil
	}
	args := req.GetArguments()

	repoName, ok := stringArg(args, "repo_name")
	if !ok {
		return mcplib.NewToolResultError("repo_name is required"), nil
	}
	org, _ := stringArg(args, "organization")
	token, _ := stringArg(args, "token")
	if token == "" && s.deps.Credentials != nil {
		token, _ = s.deps.Credentials.Get("github")
	}
	if token == "" {
		return mcplib.NewToolResultError("no github token available; pass one or store it via request_credentials"), nil
	}

	url, err := s.deps.Exporter.Export(ctx, s.deps.ArtifactRoot, repoName, org, token)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("export failed", err), nil
	}
	return mcplib.NewToolResultText(fmt.Sprintf("exported to %s", url)), nil
}

func (s *Server) handleRequestCredentials(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.deps.Credentials == nil {
		return mcplib.NewToolResultError("credential store is not configured"), nil
	}

	raw, ok := req.GetArguments()["required_services"]
	if !ok {
		return mcplib.NewToolResultError("required_services is required"), nil
	}
	services, err := stringSlice(raw)
	if err != nil {
		return mcplib.NewToolResultError("required_services must be an array of strings"), nil
	}

	available, missing := s.deps.Credentials.Missing(services)
	resp := map[string]any{
		"available": available,
		"missing":   missing,
	}
	if len(missing) > 0 {
		resp["message"] = fmt.Sprintf("missing credentials for: %s", strings.Join(missing, ", "))
	} else {
		resp["message"] = "all requested credentials are available"
	}
	return toolResultJSON(resp)
}

func stringArg(args map[string]any, key string) (string, bool) {
	raw, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func stringSlice(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("not an array")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("not a string element")
		}
		out = append(out, s)
	}
	return out, nil
}

func toolResultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("encoding response", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
