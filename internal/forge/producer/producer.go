// Package producer defines the capability interface through which the loop
// mutates an artifact. Implementations own a single artifact directory;
// alternate tech stacks substitute here without touching the loop.
package producer

import (
	"context"

	"github.com/forgeloop/forgeloop/internal/forge/models"
)

// Producer mutates one artifact directory. Apply, InstallDependencies and
// Build report failure through ProducerResult rather than an error: a
// failed mutation or build is a signal for the next evaluation, not a
// reason to abort the run. All operations must honor ctx cancellation and
// are invoked strictly sequentially by the loop.
type Producer interface {
	// CreateStructure materializes the initial artifact skeleton. It runs
	// once, before the first iteration, and is the only operation whose
	// failure is fatal to the run.
	CreateStructure(ctx context.Context) error

	// Apply executes one improvement action against the artifact.
	Apply(ctx context.Context, action models.Action) models.ProducerResult

	// InstallDependencies resolves the artifact's external dependencies.
	InstallDependencies(ctx context.Context) models.ProducerResult

	// Build compiles the artifact. Output carries compiler diagnostics on
	// failure.
	Build(ctx context.Context) models.ProducerResult
}
