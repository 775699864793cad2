// Package webstack is the reference producer: a React + Vite + TypeScript +
// Tailwind artifact driven by npm.
package webstack

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/forgeloop/forgeloop/internal/config"
	"github.com/forgeloop/forgeloop/internal/forge/models"
)

// Producer materializes and evolves a web artifact rooted at a single
// directory. It is not safe for concurrent use; the loop serializes calls.
type Producer struct {
	root           string
	database       string
	installTimeout time.Duration
	buildTimeout   time.Duration
	log            *zap.Logger

	// runCommand is swapped in tests to avoid invoking npm.
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New returns a Producer for the artifact at root.
func New(root string, cfg config.ProducerConfig, loopCfg config.LoopConfig, log *zap.Logger) *Producer {
	p := &Producer{
		root:           root,
		database:       cfg.Database,
		installTimeout: loopCfg.InstallTimeout,
		buildTimeout:   loopCfg.BuildTimeout,
		log:            log.Named("webstack"),
	}
	p.runCommand = p.execInRoot
	return p
}

func (p *Producer) execInRoot(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = p.root
	return cmd.CombinedOutput()
}

// CreateStructure writes the full project skeleton. Existing files are
// overwritten so a restarted run begins from a known baseline.
func (p *Producer) CreateStructure(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(p.root, "src", "components"), 0o755); err != nil {
		return fmt.Errorf("creating source tree: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(p.root, "src", "services"), 0o755); err != nil {
		return fmt.Errorf("creating services tree: %w", err)
	}
	for rel, content := range scaffoldFiles {
		if err := p.writeFile(rel, content); err != nil {
			return fmt.Errorf("writing %s: %w", rel, err)
		}
	}
	p.log.Info("artifact skeleton created", zap.String("root", p.root))
	return nil
}

// Apply executes one action. Unknown actions fall through to a general
// cleanup pass rather than failing, so planner extensions degrade softly.
func (p *Producer) Apply(ctx context.Context, action models.Action) models.ProducerResult {
	if err := ctx.Err(); err != nil {
		return failure("action canceled: %v", err)
	}

	var err error
	switch action {
	case models.ActionNavigation:
		err = p.writeFile("src/components/Navigation.tsx", navigationComponent)
	case models.ActionHero:
		err = p.writeFile("src/components/Hero.tsx", heroComponent)
	case models.ActionAuthentication:
		if err = p.writeFile("src/components/AuthForm.tsx", authComponent); err == nil {
			err = p.writeFile("src/services/auth.ts", authService)
		}
	case models.ActionAPI:
		err = p.writeFile("src/services/api.ts", apiService)
	case models.ActionDatabase:
		err = p.writeFile("src/services/database.ts", fmt.Sprintf(databaseService, p.database))
	case models.ActionResponsive:
		err = p.writeFile("src/components/Layout.tsx", layoutComponent)
	case models.ActionStyling:
		err = p.writeFile("src/index.css", enrichedStyles)
	case models.ActionComponents:
		if err = p.writeFile("src/components/Card.tsx", cardComponent); err == nil {
			err = p.writeFile("src/components/Footer.tsx", footerComponent)
		}
	default:
		// General improvement: make sure the shell composes whatever
		// components exist and the baseline config files are intact.
		err = p.ensureBaseline()
	}
	if err != nil {
		return failure("applying %s: %v", action, err)
	}

	if err := p.regenerateApp(); err != nil {
		return failure("regenerating application shell: %v", err)
	}

	p.log.Debug("action applied", zap.String("action", string(action)))
	return models.ProducerResult{Success: true, Output: fmt.Sprintf("applied %s", action)}
}

// InstallDependencies runs npm install under its own timeout. A missing npm
// binary or a timeout is reported, never raised.
func (p *Producer) InstallDependencies(ctx context.Context) models.ProducerResult {
	return p.npm(ctx, p.installTimeout, "install")
}

// Build runs the production build. Diagnostics land in Output for the next
// evaluation to chew on.
func (p *Producer) Build(ctx context.Context) models.ProducerResult {
	return p.npm(ctx, p.buildTimeout, "run", "build")
}

func (p *Producer) npm(ctx context.Context, timeout time.Duration, args ...string) models.ProducerResult {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := p.runCommand(cmdCtx, "npm", args...)
	if err != nil {
		p.log.Warn("npm command failed",
			zap.Strings("args", args),
			zap.Error(err))
		return failure("npm %s: %v: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return models.ProducerResult{Success: true, Output: strings.TrimSpace(string(out))}
}

// regenerateApp rewrites src/App.tsx to import and render every component
// currently present, keeping the shell and the component library in sync.
func (p *Producer) regenerateApp() error {
	entries, err := os.ReadDir(filepath.Join(p.root, "src", "components"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".tsx") {
			names = append(names, strings.TrimSuffix(name, ".tsx"))
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "import %s from './components/%s';\n", n, n)
	}
	b.WriteString("\nfunction App() {\n  return (\n    <div className=\"min-h-screen bg-gray-50\">\n")
	if len(names) == 0 {
		b.WriteString("      <main className=\"p-8\">Project under construction.</main>\n")
	}
	for _, n := range names {
		fmt.Fprintf(&b, "      <%s />\n", n)
	}
	b.WriteString("    </div>\n  );\n}\n\nexport default App;\n")

	return p.writeFile("src/App.tsx", b.String())
}

func (p *Producer) ensureBaseline() error {
	for rel, content := range scaffoldFiles {
		if _, err := os.Stat(filepath.Join(p.root, rel)); os.IsNotExist(err) {
			if err := p.writeFile(rel, content); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeFile writes content at a path relative to the artifact root,
// refusing anything that would escape it.
func (p *Producer) writeFile(rel, content string) error {
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("path %q escapes artifact root", rel)
	}
	path := filepath.Join(p.root, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func failure(format string, args ...any) models.ProducerResult {
	return models.ProducerResult{Success: false, Output: fmt.Sprintf(format, args...)}
}
