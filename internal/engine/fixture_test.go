package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/gantry-dev/gantry/internal/build"
	"github.com/gantry-dev/gantry/internal/cache"
	"github.com/gantry-dev/gantry/internal/cluster"
	"github.com/gantry-dev/gantry/internal/container"
	"github.com/gantry-dev/gantry/internal/k8s"
	"github.com/gantry-dev/gantry/internal/testutils"
	"github.com/gantry-dev/gantry/pkg/model"
)

type fixture struct {
	t   *testing.T
	dir string

	store    *cache.MemoryStore
	builder  *build.FakeBuilder
	client   *k8s.FakeClient
	clusters *cluster.Registry
	clock    clockwork.Clock
	runner   *Runner
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t:        t,
		dir:      t.TempDir(),
		store:    cache.NewMemoryStore(),
		builder:  build.NewFakeBuilder(),
		client:   k8s.NewFakeClient(),
		clusters: cluster.NewRegistry(),
		clock:    clockwork.NewFakeClock(),
	}
	f.resetRunner()
	return f
}

// resetRunner builds a fresh Runner over the same store, like a new CLI
// invocation against the same cache.
func (f *fixture) resetRunner() {
	binder := NewBinder(f.clusters)
	clients := func(ctx context.Context, c cluster.Cluster) (k8s.Client, error) {
		return f.client, nil
	}
	f.runner = NewRunner(f.store, f.builder, binder, clients, f.clock, 2)
}

func (f *fixture) ctx() context.Context {
	return testutils.CtxForTest()
}

func (f *fixture) writeFile(name, contents string) string {
	f.t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(f.t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func (f *fixture) imageTarget(name, ref, srcFile string) model.ImageTarget {
	f.t.Helper()
	return model.NewImageTarget(
		model.Label{Package: "shop", Target: name},
		container.MustParseSelector(ref)).
		WithBuildDetails(model.CommandBuild{Command: "true", Dir: f.dir}).
		WithSrcs([]string{srcFile})
}

func (f *fixture) manifestTarget(name, yamlPath string, images []model.ImageMapEntry, deps ...model.TargetID) model.ManifestTarget {
	f.t.Helper()
	return model.NewManifestTarget(
		model.Label{Package: "shop", Target: name}, []string{yamlPath}).
		WithImageMaps(images).
		WithExtraDeps(deps)
}

func (f *fixture) graph(targets ...model.TargetSpec) *model.TargetGraph {
	f.t.Helper()
	g, err := model.NewTargetGraph(targets)
	require.NoError(f.t, err)
	return g
}

func (f *fixture) status(s *RunSummary, id model.TargetID) TargetResult {
	f.t.Helper()
	result, ok := s.Result(id)
	require.True(f.t, ok, "no result recorded for %s", id)
	return result
}

func imageMap(selector string, imageID model.TargetID) model.ImageMapEntry {
	return model.ImageMapEntry{
		Selector: container.MustParseSelector(selector),
		ImageID:  imageID,
	}
}
