package engine

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantry-dev/gantry/internal/k8s/testyaml"
	"github.com/gantry-dev/gantry/pkg/model"
)

// The canonical three-target chain: image api, manifest deploy binding it,
// manifest post depending on deploy.
func (f *fixture) chain() (model.ImageTarget, model.ManifestTarget, model.ManifestTarget) {
	api, deploy := f.apiAndDeploy()
	post := f.manifestTarget("post", f.writeFile("post/k8s.yaml", testyaml.NamespaceYAML), nil, deploy.ID())
	return api, deploy, post
}

func TestApplyFirstRunBuildsAndAppliesInOrder(t *testing.T) {
	f := newFixture(t)
	api, deploy, post := f.chain()
	g := f.graph(api, deploy, post)

	summary, err := f.runner.Apply(f.ctx(), g)
	require.NoError(t, err)
	require.True(t, summary.Ok())

	assert.Equal(t, StatusBuilt, f.status(summary, api.ID()).Status)
	assert.Equal(t, StatusApplied, f.status(summary, deploy.ID()).Status)
	assert.Equal(t, StatusApplied, f.status(summary, post.ID()).Status)

	assert.Equal(t, []model.TargetID{api.ID()}, f.builder.BuildCalls)

	// deploy's entities (Service, Deployment) land before post's Namespace.
	assert.Equal(t,
		[]string{"Service/shop-api", "Deployment/shop-api", "Namespace/shop"},
		f.client.AppliedNames())
}

func TestApplySecondRunIsNoOp(t *testing.T) {
	f := newFixture(t)
	api, deploy, post := f.chain()
	g := f.graph(api, deploy, post)

	_, err := f.runner.Apply(f.ctx(), g)
	require.NoError(t, err)
	applyCallsAfterFirst := f.client.ApplyCalls

	f.resetRunner()
	summary, err := f.runner.Apply(f.ctx(), g)
	require.NoError(t, err)

	assert.Equal(t, StatusFresh, f.status(summary, api.ID()).Status)
	assert.Equal(t, StatusFresh, f.status(summary, deploy.ID()).Status)
	assert.Equal(t, StatusFresh, f.status(summary, post.ID()).Status)

	assert.Equal(t, 1, f.builder.BuildCount(api.ID()), "no rebuild on unchanged inputs")
	assert.Equal(t, applyCallsAfterFirst, f.client.ApplyCalls, "no re-apply on unchanged inputs")
}

func TestApplyAfterSourceChangeRebuildsChain(t *testing.T) {
	f := newFixture(t)
	api, deploy, post := f.chain()
	g := f.graph(api, deploy, post)

	_, err := f.runner.Apply(f.ctx(), g)
	require.NoError(t, err)

	f.writeFile("api/main.txt", "v2")
	f.resetRunner()

	summary, err := f.runner.Apply(f.ctx(), g)
	require.NoError(t, err)

	assert.Equal(t, StatusBuilt, f.status(summary, api.ID()).Status)
	assert.Equal(t, StatusApplied, f.status(summary, deploy.ID()).Status)
	assert.Equal(t, StatusApplied, f.status(summary, post.ID()).Status)
	assert.Equal(t, 2, f.builder.BuildCount(api.ID()))
}

func TestBuildFailureSkipsDependentsOnly(t *testing.T) {
	f := newFixture(t)
	api, deploy, post := f.chain()

	// An independent branch unaffected by api's failure.
	webSrc := f.writeFile("web/main.txt", "v1")
	web := f.imageTarget("web", "gcr.io/acme/shop-web", webSrc)
	webYAML := f.writeFile("web/k8s.yaml", testyaml.TwoContainersYAML)
	webDeploy := f.manifestTarget("web-deploy", webYAML,
		[]model.ImageMapEntry{imageMap("gcr.io/acme/shop-web", web.ID())})

	f.builder.BuildErrors[api.ID()] = errors.New("compiler exploded")

	g := f.graph(api, deploy, post, web, webDeploy)
	summary, err := f.runner.Apply(f.ctx(), g)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, f.status(summary, api.ID()).Status)
	assert.ErrorContains(t, f.status(summary, api.ID()).Err, "compiler exploded")

	deployResult := f.status(summary, deploy.ID())
	assert.Equal(t, StatusSkipped, deployResult.Status)
	assert.Equal(t, api.ID(), deployResult.Because)

	// post is skipped because of api, the root cause, not deploy.
	postResult := f.status(summary, post.ID())
	assert.Equal(t, StatusSkipped, postResult.Status)
	assert.Equal(t, api.ID(), postResult.Because)

	assert.Equal(t, StatusBuilt, f.status(summary, web.ID()).Status)
	assert.Equal(t, StatusApplied, f.status(summary, webDeploy.ID()).Status)

	assert.False(t, summary.Ok())
	assert.True(t, summary.HasBuildFailures())
	assert.False(t, summary.HasApplyFailures())
}

func TestApplyFailureSkipsDownstreamManifests(t *testing.T) {
	f := newFixture(t)
	api, deploy, post := f.chain()
	f.client.ApplyError = errors.New("forbidden: RBAC says no")

	g := f.graph(api, deploy, post)
	summary, err := f.runner.Apply(f.ctx(), g)
	require.NoError(t, err)

	assert.Equal(t, StatusBuilt, f.status(summary, api.ID()).Status)

	deployResult := f.status(summary, deploy.ID())
	assert.Equal(t, StatusFailed, deployResult.Status)
	var applyErr ApplyError
	require.ErrorAs(t, deployResult.Err, &applyErr)
	assert.Equal(t, deploy.ID(), applyErr.ID)

	postResult := f.status(summary, post.ID())
	assert.Equal(t, StatusSkipped, postResult.Status)
	assert.Equal(t, deploy.ID(), postResult.Because)

	assert.True(t, summary.HasApplyFailures())
	assert.False(t, summary.HasBuildFailures())
}

func TestFailedApplyRetriesNextRun(t *testing.T) {
	f := newFixture(t)
	api, deploy := f.apiAndDeploy()
	g := f.graph(api, deploy)

	f.client.ApplyError = errors.New("connection refused")
	_, err := f.runner.Apply(f.ctx(), g)
	require.NoError(t, err)

	// The image build succeeded and is cached; only the apply reruns.
	f.client.ApplyError = nil
	f.resetRunner()
	summary, err := f.runner.Apply(f.ctx(), g)
	require.NoError(t, err)

	assert.Equal(t, StatusFresh, f.status(summary, api.ID()).Status)
	assert.Equal(t, StatusApplied, f.status(summary, deploy.ID()).Status)
	assert.Equal(t, 1, f.builder.BuildCount(api.ID()))
}

func TestBuildOnlyDoesNotApply(t *testing.T) {
	f := newFixture(t)
	api, deploy, post := f.chain()
	g := f.graph(api, deploy, post)

	summary, err := f.runner.Build(f.ctx(), g)
	require.NoError(t, err)

	assert.Equal(t, StatusBuilt, f.status(summary, api.ID()).Status)
	_, hasDeploy := summary.Result(deploy.ID())
	assert.False(t, hasDeploy, "build must not touch manifests")
	assert.Zero(t, f.client.ApplyCalls)
}

func TestIndependentImagesBuildConcurrently(t *testing.T) {
	f := newFixture(t)

	var targets []model.TargetSpec
	for _, name := range []string{"a", "b", "c", "d"} {
		src := f.writeFile(name+"/main.txt", name)
		targets = append(targets, f.imageTarget(name, "gcr.io/acme/"+name, src))
	}
	g := f.graph(targets...)

	summary, err := f.runner.Build(f.ctx(), g)
	require.NoError(t, err)

	for _, target := range targets {
		assert.Equal(t, StatusBuilt, f.status(summary, target.ID()).Status)
		assert.Equal(t, 1, f.builder.BuildCount(target.ID()), "each target builds at most once")
	}
}

func TestGroupSkippedWhenMemberFails(t *testing.T) {
	f := newFixture(t)
	api, deploy := f.apiAndDeploy()
	group := model.NewGroupTarget(
		model.Label{Package: "shop", Target: "all"},
		[]model.TargetID{deploy.ID()})
	f.builder.BuildErrors[api.ID()] = errors.New("boom")

	g := f.graph(api, deploy, group)
	summary, err := f.runner.Apply(f.ctx(), g)
	require.NoError(t, err)

	groupResult := f.status(summary, group.ID())
	assert.Equal(t, StatusSkipped, groupResult.Status)
	assert.Equal(t, api.ID(), groupResult.Because)
}

func TestDownDeletesInReverseOrder(t *testing.T) {
	f := newFixture(t)
	api, deploy, post := f.chain()
	g := f.graph(api, deploy, post)

	_, err := f.runner.Apply(f.ctx(), g)
	require.NoError(t, err)

	summary, err := f.runner.Down(f.ctx(), g)
	require.NoError(t, err)
	assert.Equal(t, StatusDeleted, f.status(summary, deploy.ID()).Status)
	assert.Equal(t, StatusDeleted, f.status(summary, post.ID()).Status)

	// post's entities go first: dependents disappear before dependencies.
	require.Len(t, f.client.Deleted, 3)
	assert.Equal(t, "shop", f.client.Deleted[0].Name())

	// Down drops the receipts, so the next apply re-applies.
	f.resetRunner()
	plan, err := Resolve(g, f.store)
	require.NoError(t, err)
	assert.True(t, plan.Stale(deploy.ID()))
	assert.False(t, plan.Stale(api.ID()), "image records survive a down")
}
