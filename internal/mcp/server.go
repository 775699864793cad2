// Package mcp exposes the remote control surface: an MCP server carrying
// the five build-control tools and the status resources.
package mcp

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/forgeloop/forgeloop/internal/config"
	"github.com/forgeloop/forgeloop/internal/forge/loop"
	"github.com/forgeloop/forgeloop/internal/forge/models"
)

// RunnerFactory builds a fresh Runner for each accepted start_build call.
type RunnerFactory func(spec, goal string, maxIterations int) (*loop.Runner, error)

// Exporter is the slice of the export package the server needs.
type Exporter interface {
	Export(ctx context.Context, root, repoName, org, token string) (string, error)
}

// CredentialStore is the slice of the credentials package the server needs.
type CredentialStore interface {
	Get(service string) (string, bool)
	Missing(services []string) (available, missing []string)
}

// ServerConfig carries the transport settings and identity of the server.
type ServerConfig struct {
	Name      string
	Version   string
	Transport string
	Addr      string
}

// ServerDeps carries every collaborator the tools dispatch to.
type ServerDeps struct {
	NewRunner    RunnerFactory
	Exporter     Exporter
	Credentials  CredentialStore
	ArtifactRoot string
	Config       *config.Config
	Logger       *zap.Logger
}

// Server owns at most one live run at a time. Tool handlers are invoked
// concurrently by the transport; all run bookkeeping is guarded by mu.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	log       *zap.Logger

	mu      sync.Mutex
	runner  *loop.Runner
	baseCtx context.Context
	runs    sync.WaitGroup
}

// NewServer assembles the MCP server and registers its tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) (*Server, error) {
	if deps.NewRunner == nil {
		return nil, fmt.Errorf("a runner factory is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Server{
		cfg:  cfg,
		deps: deps,
		log:  deps.Logger.Named("mcp"),
	}
	s.mcpServer = mcpserver.NewMCPServer(
		cfg.Name,
		cfg.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithRecovery(),
	)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Start serves until ctx is canceled, then waits for any live run to reach
// its terminal state before returning.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.log.Info("server starting",
		zap.String("transport", s.cfg.Transport),
		zap.String("addr", s.cfg.Addr))

	var err error
	switch s.cfg.Transport {
	case "http":
		err = s.serveHTTP(ctx)
	default:
		err = mcpserver.NewStdioServer(s.mcpServer).Listen(ctx, os.Stdin, os.Stdout)
	}

	s.runs.Wait()
	if err != nil && ctx.Err() != nil {
		// Shutdown was requested; the transport error is incidental.
		return nil
	}
	return err
}

func (s *Server) serveHTTP(ctx context.Context) error {
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcpServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpServer.Start(s.cfg.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// startRun admits a new run if none is live, spawning its goroutine.
func (s *Server) startRun(spec, goal string, maxIterations int) (models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runner != nil {
		select {
		case <-s.runner.Done():
			// Previous run finished; its runner is replaceable.
		default:
			return models.Status{}, fmt.Errorf("a build is already running (run %s)", s.runner.RunID())
		}
	}

	runner, err := s.deps.NewRunner(spec, goal, maxIterations)
	if err != nil {
		return models.Status{}, err
	}
	s.runner = runner

	ctx := s.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		if _, err := runner.Run(ctx); err != nil {
			s.log.Warn("run ended with error",
				zap.String("run_id", runner.RunID()),
				zap.Error(err))
		}
	}()

	return runner.Status(), nil
}

func (s *Server) currentRunner() *loop.Runner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner
}
