package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forgeloop/forgeloop/internal/forge/history"
	"github.com/forgeloop/forgeloop/internal/forge/models"
)

// requiredEntries are the files and directories every artifact must carry
// before it can be considered structurally sound.
var requiredEntries = []string{
	"package.json",
	"index.html",
	"src",
	"src/main.tsx",
	"src/App.tsx",
	"src/index.css",
}

// sourceExtensions are the file types inspected by content-based checks.
var sourceExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".css": true, ".html": true, ".json": true, ".md": true,
}

// checkStructure verifies the artifact's required scaffolding exists.
func (e *Engine) checkStructure(_ context.Context, root, _ string) models.Verdict {
	if _, err := os.Stat(root); err != nil {
		return infraFailure("artifact root is not accessible", err)
	}

	var v models.Verdict
	for _, entry := range requiredEntries {
		if _, err := os.Stat(filepath.Join(root, entry)); err != nil {
			v.Issues = append(v.Issues, fmt.Sprintf("missing required entry %q", entry))
		}
	}

	if len(v.Issues) == 0 {
		v.Status = models.StatusPass
		v.Positives = append(v.Positives, "project scaffolding is complete")
		if names, err := os.ReadDir(filepath.Join(root, "src", "components")); err == nil && len(names) > 0 {
			v.Positives = append(v.Positives, "component library is populated")
		}
	} else {
		v.Status = models.StatusFail
	}
	return v
}

// tscTimeout bounds the compiler sub-check; a hung tsc must never stall an
// iteration for longer than this.
const tscTimeout = 30 * time.Second

// tscOutputLimit caps how much compiler output lands in a single issue.
const tscOutputLimit = 200

// checkCodeQuality runs the TypeScript compiler in no-emit mode and inspects
// source files for build-readiness signals. Compiler diagnostics become
// issues; a compiler that cannot run at all fails the check outright.
func (e *Engine) checkCodeQuality(ctx context.Context, root, _ string) models.Verdict {
	var v models.Verdict

	tscCtx, cancel := context.WithTimeout(ctx, tscTimeout)
	defer cancel()
	out, err := e.runCommand(tscCtx, root, "npx", "tsc", "--noEmit")
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		v.Positives = append(v.Positives, "typescript compilation succeeded")
	case errors.Is(tscCtx.Err(), context.DeadlineExceeded):
		return infraFailure("typescript compiler timed out", context.DeadlineExceeded)
	case errors.As(err, &exitErr):
		v.Issues = append(v.Issues, fmt.Sprintf("typescript errors: %s", truncate(strings.TrimSpace(string(out)), tscOutputLimit)))
	default:
		return infraFailure("typescript compiler could not run", err)
	}

	if _, err := os.Stat(filepath.Join(root, "tsconfig.json")); err != nil {
		v.Issues = append(v.Issues, "missing tsconfig.json")
	} else if data, err := os.ReadFile(filepath.Join(root, "tsconfig.json")); err == nil {
		if strings.Contains(string(data), `"strict": true`) {
			v.Positives = append(v.Positives, "typescript strict mode is enabled")
		}
	}

	sawSource := false
	err = walkSources(root, func(rel string, data []byte) {
		if !strings.HasSuffix(rel, ".ts") && !strings.HasSuffix(rel, ".tsx") {
			return
		}
		sawSource = true
		content := string(data)
		switch {
		case len(strings.TrimSpace(content)) == 0:
			v.Issues = append(v.Issues, fmt.Sprintf("empty source file %q", rel))
		case strings.Contains(content, "TODO") || strings.Contains(content, "FIXME"):
			v.Issues = append(v.Issues, fmt.Sprintf("unresolved marker in %q", rel))
		}
		if strings.Contains(content, "console.log(") {
			v.Issues = append(v.Issues, fmt.Sprintf("debug logging left in %q", rel))
		}
	})
	if err != nil {
		return infraFailure("source tree is not readable", err)
	}
	if sawSource {
		v.Positives = append(v.Positives, "typescript sources are present")
	}

	switch {
	case !sawSource:
		v.Status = models.StatusFail
		v.Issues = append(v.Issues, "no typescript sources found")
	case len(v.Issues) > 0:
		v.Status = models.StatusWarn
	default:
		v.Status = models.StatusPass
	}
	return v
}

// checkFunctionality verifies the artifact is wired to run: a build script,
// a framework dependency, and an application shell that composes at least
// one component.
func (e *Engine) checkFunctionality(_ context.Context, root, _ string) models.Verdict {
	var v models.Verdict

	pkg, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return infraFailure("package.json is not readable", err)
	}
	manifest := string(pkg)
	if !strings.Contains(manifest, `"build"`) {
		v.Issues = append(v.Issues, "package.json defines no build script")
	}
	if !strings.Contains(manifest, `"react"`) {
		v.Issues = append(v.Issues, "package.json declares no framework dependency")
	}

	app, err := os.ReadFile(filepath.Join(root, "src", "App.tsx"))
	if err != nil {
		v.Issues = append(v.Issues, "application shell src/App.tsx is missing")
	} else if !strings.Contains(string(app), "./components/") {
		v.Issues = append(v.Issues, "application shell does not compose any components")
	} else {
		v.Positives = append(v.Positives, "application shell composes components")
	}

	if len(v.Issues) == 0 {
		v.Status = models.StatusPass
	} else {
		v.Status = models.StatusFail
	}
	return v
}

// goalStopWords are excluded when extracting significant terms from a goal.
var goalStopWords = map[string]bool{
	"with": true, "that": true, "this": true, "from": true, "have": true,
	"will": true, "your": true, "into": true, "them": true, "then": true,
	"than": true, "what": true, "when": true, "where": true, "which": true,
	"would": true, "could": true, "should": true, "there": true, "their": true,
	"about": true, "make": true, "makes": true, "build": true, "builds": true,
	"create": true, "creates": true, "want": true, "need": true, "needs": true,
	"using": true, "uses": true, "able": true, "also": true, "really": true,
	"very": true, "some": true, "more": true, "most": true, "each": true,
	"every": true, "must": true, "style": true, "styled": true, "page": true,
	"pages": true, "site": true, "website": true, "application": true, "app": true,
}

// significantTermLength is the minimum rune count for a goal term to count.
const significantTermLength = 4

// goalThemes name common project archetypes. When a goal mentions a theme,
// the artifact should carry at least one of its keywords.
var goalThemes = []struct {
	name     string
	keywords []string
}{
	{"e-commerce", []string{"cart", "checkout", "payment", "product", "shop"}},
	{"dashboard", []string{"dashboard", "chart", "analytics", "metrics"}},
	{"authentication", []string{"login", "auth", "signup", "user"}},
	{"api", []string{"api", "fetch", "axios", "service"}},
	{"database", []string{"database", "db", "postgres", "mongo"}},
	{"responsive", []string{"responsive", "mobile", "tailwind", "css"}},
}

// checkGoalAlignment is a keyword-presence heuristic: significant terms of
// the goal must appear, case-insensitively, somewhere in the artifact's
// textual files, and themed goals (e-commerce, dashboard, ...) should show
// theme-related code. It approximates intent, nothing more.
func (e *Engine) checkGoalAlignment(_ context.Context, root, goal string) models.Verdict {
	var corpus strings.Builder
	err := walkSources(root, func(_ string, data []byte) {
		corpus.WriteString(strings.ToLower(string(data)))
		corpus.WriteByte('\n')
	})
	if err != nil {
		return infraFailure("artifact is not readable for alignment", err)
	}
	haystack := corpus.String()

	var v models.Verdict
	terms := SignificantTerms(goal)
	matched := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			matched++
		} else {
			v.Issues = append(v.Issues, fmt.Sprintf("goal term %q is not reflected in the artifact", term))
		}
	}

	goalLower := strings.ToLower(goal)
	for _, theme := range goalThemes {
		if !strings.Contains(goalLower, theme.name) {
			continue
		}
		var found []string
		for _, kw := range theme.keywords {
			if strings.Contains(haystack, kw) {
				found = append(found, kw)
			}
		}
		if len(found) > 0 {
			if len(found) > 3 {
				found = found[:3]
			}
			v.Positives = append(v.Positives, fmt.Sprintf("found %s related code: %s", theme.name, strings.Join(found, ", ")))
		} else {
			v.Issues = append(v.Issues, fmt.Sprintf("goal mentions %s but no related code found", theme.name))
		}
	}

	switch {
	case len(terms) == 0:
		v.Status = models.StatusPass
		v.Positives = append(v.Positives, "goal carries no significant terms to align against")
	case float64(matched)/float64(len(terms)) >= e.scoring.AlignmentFraction:
		v.Status = models.StatusPass
		v.Positives = append(v.Positives, fmt.Sprintf("%d of %d goal terms reflected in the artifact", matched, len(terms)))
	default:
		v.Status = models.StatusFail
	}
	return v
}

// checkBestPractices flags convention drift. Everything here is advisory:
// the verdict is warn at worst.
func (e *Engine) checkBestPractices(_ context.Context, root, _ string) models.Verdict {
	var v models.Verdict

	for _, want := range []string{".gitignore", "tailwind.config.js", "postcss.config.js", "vite.config.ts"} {
		if _, err := os.Stat(filepath.Join(root, want)); err != nil {
			v.Issues = append(v.Issues, fmt.Sprintf("missing %q", want))
		}
	}

	entries, err := os.ReadDir(filepath.Join(root, "src", "components"))
	if err == nil && len(entries) > 0 {
		clean := true
		for _, entry := range entries {
			name := entry.Name()
			if first := []rune(name); len(first) > 0 && !unicode.IsUpper(first[0]) {
				v.Issues = append(v.Issues, fmt.Sprintf("component %q is not PascalCase", name))
				clean = false
			}
		}
		if clean {
			v.Positives = append(v.Positives, "component naming is consistent")
		}
	}

	if len(v.Issues) > 0 {
		v.Status = models.StatusWarn
	} else {
		v.Status = models.StatusPass
	}
	return v
}

// SignificantTerms extracts the lowercased goal terms used for alignment:
// alphanumeric runs of at least significantTermLength runes, stop words
// excluded, first-occurrence order preserved.
func SignificantTerms(goal string) []string {
	fields := strings.FieldsFunc(strings.ToLower(goal), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	var terms []string
	for _, f := range fields {
		if len([]rune(f)) < significantTermLength || goalStopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// walkSources visits every textual source file under root, skipping
// node_modules, dot-directories, and the run's own audit record.
func walkSources(root string, visit func(rel string, data []byte)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == "node_modules" || name == "dist" || (strings.HasPrefix(name, ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == history.SummaryFileName || !sourceExtensions[filepath.Ext(path)] {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		visit(rel, data)
		return nil
	})
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func infraFailure(msg string, err error) models.Verdict {
	return models.Verdict{
		Status: models.StatusFail,
		Issues: []string{fmt.Sprintf("%s: %v", msg, err)},
	}
}
