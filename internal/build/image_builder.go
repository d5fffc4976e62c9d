package build

import (
	"context"

	"github.com/distribution/reference"
	"github.com/pkg/errors"

	"github.com/gantry-dev/gantry/pkg/model"
)

// ImageBuilder turns one image target into a content-addressed artifact.
// The engine decides *whether* a target builds (cache check, staleness);
// builders only decide *how*. Any mechanism that can produce a digest for
// the target's ref satisfies the contract.
type ImageBuilder interface {
	// Name identifies the builder in build records and log lines.
	Name() string

	// Build produces the image and returns its content-addressed ref
	// (name@sha256:...). Implementations must not retry internally.
	Build(ctx context.Context, target model.ImageTarget) (reference.Canonical, error)
}

// DispatchBuilder routes each target to the builder matching its recipe.
type DispatchBuilder struct {
	command   *CommandBuilder
	dockerCLI *DockerCLIBuilder
}

var _ ImageBuilder = DispatchBuilder{}

func NewDispatchBuilder(command *CommandBuilder, dockerCLI *DockerCLIBuilder) DispatchBuilder {
	return DispatchBuilder{command: command, dockerCLI: dockerCLI}
}

func (b DispatchBuilder) Name() string { return "dispatch" }

func (b DispatchBuilder) Build(ctx context.Context, target model.ImageTarget) (reference.Canonical, error) {
	switch {
	case target.IsCommandBuild():
		return b.command.Build(ctx, target)
	case target.IsDockerfileBuild():
		return b.dockerCLI.Build(ctx, target)
	default:
		return nil, errors.Errorf("target %s has no build recipe", target.ID())
	}
}
