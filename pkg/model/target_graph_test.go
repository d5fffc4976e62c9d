package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantry-dev/gantry/internal/container"
)

func TestGraphRejectsDuplicateID(t *testing.T) {
	_, err := NewTargetGraph([]TargetSpec{
		newDepTarget("api"),
		newDepTarget("api"),
	})
	require.Error(t, err)

	var dupErr DuplicateTargetError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, imageIDFor("api"), dupErr.ID)
}

func TestGraphAllowsSameNameDifferentType(t *testing.T) {
	label := Label{Target: "api"}
	manifest := NewManifestTarget(label, []string{"/repo/api.yaml"})

	g, err := NewTargetGraph([]TargetSpec{newDepTarget("api"), manifest})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
}

func TestGraphRejectsUnknownDependency(t *testing.T) {
	_, err := NewTargetGraph([]TargetSpec{newDepTarget("api", "base")})
	require.Error(t, err)

	var unknownErr UnknownTargetError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, imageIDFor("base"), unknownErr.ID)
	assert.Equal(t, imageIDFor("api"), unknownErr.ReferencedBy)
	assert.Contains(t, err.Error(), "unknown target image://:base (dependency of image://:api)")
}

func TestGraphRejectsSelfDependency(t *testing.T) {
	_, err := NewTargetGraph([]TargetSpec{newDepTarget("api", "api")})
	require.Error(t, err)

	var cycleErr CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []TargetID{imageIDFor("api")}, cycleErr.Path)
}

func TestGraphDeclarationOrderIndependent(t *testing.T) {
	// Dependencies may be declared after their dependents.
	g, err := NewTargetGraph([]TargetSpec{
		newDepTarget("api", "base"),
		newDepTarget("base"),
	})
	require.NoError(t, err)

	deps, err := g.DependencyIDsOf(imageIDFor("api"))
	require.NoError(t, err)
	assert.Equal(t, []TargetID{imageIDFor("base")}, deps)
}

func TestGraphDependentIDs(t *testing.T) {
	g, err := NewTargetGraph([]TargetSpec{
		newDepTarget("base"),
		newDepTarget("api", "base"),
		newDepTarget("web", "base"),
		newDepTarget("worker", "api"),
	})
	require.NoError(t, err)

	assert.Equal(t,
		[]TargetID{imageIDFor("api"), imageIDFor("web")},
		g.DependentIDs(imageIDFor("base")))
	assert.Empty(t, g.DependentIDs(imageIDFor("worker")))
}

func TestVisitTransitivePostOrder(t *testing.T) {
	g, err := NewTargetGraph([]TargetSpec{
		newDepTarget("base"),
		newDepTarget("api", "base"),
		newDepTarget("web", "base"),
		newDepTarget("all", "api", "web"),
	})
	require.NoError(t, err)

	var visited []string
	err = g.VisitTransitive([]TargetID{imageIDFor("all")}, func(spec TargetSpec) error {
		visited = append(visited, shortName(spec.ID()))
		return nil
	})
	require.NoError(t, err)

	// Diamond: base visited once, each target only after its dependencies.
	assert.Equal(t, []string{"base", "api", "web", "all"}, visited)
}

func TestVisitTransitiveDeepChain(t *testing.T) {
	// Deep enough that a recursive walk would be in stack-overflow
	// territory on some platforms.
	const depth = 50000
	targets := make([]TargetSpec, 0, depth)
	targets = append(targets, newChainTarget(0))
	for i := 1; i < depth; i++ {
		targets = append(targets, newChainTarget(i, i-1))
	}
	g, err := NewTargetGraph(targets)
	require.NoError(t, err)

	count := 0
	err = g.VisitTransitive([]TargetID{targets[depth-1].ID()}, func(TargetSpec) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, depth, count)
}

func TestSubgraph(t *testing.T) {
	g, err := NewTargetGraph([]TargetSpec{
		newDepTarget("base"),
		newDepTarget("api", "base"),
		newDepTarget("web", "base"),
		newDepTarget("unrelated"),
	})
	require.NoError(t, err)

	sub, err := g.Subgraph([]TargetID{imageIDFor("api")})
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Len())

	_, err = sub.TargetByID(imageIDFor("base"))
	assert.NoError(t, err)
	_, err = sub.TargetByID(imageIDFor("web"))
	assert.Error(t, err)
	_, err = sub.TargetByID(imageIDFor("unrelated"))
	assert.Error(t, err)
}

func TestManifestTargetDependencyOrder(t *testing.T) {
	label := Label{Package: "svc", Target: "deploy"}
	m := NewManifestTarget(label, []string{"/repo/svc/deploy.yaml"}).
		WithImageMaps([]ImageMapEntry{
			{Selector: container.MustParseSelector("gcr.io/test/api"), ImageID: imageIDFor("api")},
			{Selector: container.MustParseSelector("gcr.io/test/web"), ImageID: imageIDFor("web")},
		}).
		WithExtraDeps([]TargetID{ManifestID(Label{Target: "infra"})})

	assert.Equal(t, []TargetID{
		imageIDFor("api"),
		imageIDFor("web"),
		ManifestID(Label{Target: "infra"}),
	}, m.DependencyIDs())
	assert.Equal(t, []TargetID{imageIDFor("api"), imageIDFor("web")}, m.ImageDependencyIDs())
}

func newChainTarget(i int, deps ...int) ImageTarget {
	depIDs := make([]TargetID, len(deps))
	for j, d := range deps {
		depIDs[j] = ImageID(Label{Target: fmt.Sprintf("link%d", d)})
	}
	ref := container.MustParseSelector("gcr.io/test/chain")
	return NewImageTarget(Label{Target: fmt.Sprintf("link%d", i)}, ref).
		WithBuildDetails(CommandBuild{Command: "true"}).
		WithDependencyIDs(depIDs)
}
