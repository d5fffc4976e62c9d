//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package cli

import (
	"github.com/google/wire"
	"github.com/jonboulle/clockwork"

	"github.com/gantry-dev/gantry/internal/build"
	"github.com/gantry-dev/gantry/internal/engine"
	"github.com/gantry-dev/gantry/internal/gantryfile"
)

func wireRunner(result gantryfile.Result) (*engine.Runner, error) {
	wire.Build(
		provideCacheStore,

		build.NewCommandBuilder,
		build.NewDockerCLIBuilder,
		build.NewDispatchBuilder,
		wire.Bind(new(build.ImageBuilder), new(build.DispatchBuilder)),

		provideBinder,
		provideClientFactory,

		clockwork.NewRealClock,
		provideRunner,
	)
	return nil, nil
}
