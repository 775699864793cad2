package webstack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/forgeloop/forgeloop/internal/config"
	"github.com/forgeloop/forgeloop/internal/forge/models"
)

func newTestProducer(t *testing.T) *Producer {
	t.Helper()
	return New(t.TempDir(),
		config.ProducerConfig{Stack: "webstack", Database: "postgresql"},
		config.LoopConfig{InstallTimeout: time.Second, BuildTimeout: time.Second},
		zaptest.NewLogger(t))
}

func readArtifact(t *testing.T, p *Producer, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(p.root, rel))
	require.NoError(t, err)
	return string(data)
}

func TestCreateStructureWritesSkeleton(t *testing.T) {
	p := newTestProducer(t)
	require.NoError(t, p.CreateStructure(context.Background()))

	for rel := range scaffoldFiles {
		_, err := os.Stat(filepath.Join(p.root, rel))
		assert.NoError(t, err, "expected %s", rel)
	}
	_, err := os.Stat(filepath.Join(p.root, "src", "components"))
	assert.NoError(t, err)
}

func TestApplyWritesComponentAndRegeneratesShell(t *testing.T) {
	p := newTestProducer(t)
	require.NoError(t, p.CreateStructure(context.Background()))

	res := p.Apply(context.Background(), models.ActionNavigation)
	require.True(t, res.Success, res.Output)

	assert.Contains(t, readArtifact(t, p, "src/components/Navigation.tsx"), "function Navigation")

	app := readArtifact(t, p, "src/App.tsx")
	assert.Contains(t, app, "import Navigation from './components/Navigation';")
	assert.Contains(t, app, "<Navigation />")
}

func TestApplyShellComposesEveryComponent(t *testing.T) {
	p := newTestProducer(t)
	require.NoError(t, p.CreateStructure(context.Background()))

	for _, action := range []models.Action{models.ActionHero, models.ActionNavigation, models.ActionComponents} {
		res := p.Apply(context.Background(), action)
		require.True(t, res.Success, res.Output)
	}

	app := readArtifact(t, p, "src/App.tsx")
	for _, name := range []string{"Hero", "Navigation", "Card", "Footer"} {
		assert.Contains(t, app, "<"+name+" />")
	}
}

func TestApplyDatabaseUsesConfiguredKind(t *testing.T) {
	p := newTestProducer(t)
	require.NoError(t, p.CreateStructure(context.Background()))

	res := p.Apply(context.Background(), models.ActionDatabase)
	require.True(t, res.Success, res.Output)

	svc := readArtifact(t, p, "src/services/database.ts")
	assert.Contains(t, svc, "kind: 'postgresql'")
}

func TestApplyGeneralRestoresBaseline(t *testing.T) {
	p := newTestProducer(t)
	require.NoError(t, p.CreateStructure(context.Background()))
	require.NoError(t, os.Remove(filepath.Join(p.root, "tailwind.config.js")))

	res := p.Apply(context.Background(), models.ActionGeneral)
	require.True(t, res.Success, res.Output)

	_, err := os.Stat(filepath.Join(p.root, "tailwind.config.js"))
	assert.NoError(t, err)
}

func TestApplyCanceledContext(t *testing.T) {
	p := newTestProducer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.Apply(ctx, models.ActionHero)
	assert.False(t, res.Success)
}

func TestNpmFailureIsReportedNotRaised(t *testing.T) {
	p := newTestProducer(t)
	p.runCommand = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("npm ERR! peer dep conflict"), errors.New("exit status 1")
	}

	res := p.InstallDependencies(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "peer dep conflict")

	res = p.Build(context.Background())
	assert.False(t, res.Success)
}

func TestNpmSuccessCapturesOutput(t *testing.T) {
	p := newTestProducer(t)
	var gotArgs []string
	p.runCommand = func(_ context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "npm", name)
		gotArgs = args
		return []byte("built in 2.1s\n"), nil
	}

	res := p.Build(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, []string{"run", "build"}, gotArgs)
	assert.Equal(t, "built in 2.1s", res.Output)
}

func TestWriteFileRejectsEscapingPaths(t *testing.T) {
	p := newTestProducer(t)

	err := p.writeFile("../outside.txt", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes artifact root")

	err = p.writeFile("/etc/passwd", "nope")
	require.Error(t, err)
}
