package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantry-dev/gantry/internal/container"
	"github.com/gantry-dev/gantry/pkg/model"
)

func TestImageFingerprintDeterministic(t *testing.T) {
	f := newFixture(t)
	f.writeFile("src/main.go", "package main")
	target := f.imageTarget("api", "src")

	fp1, err := ForImage(target)
	require.NoError(t, err)
	fp2, err := ForImage(target)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.True(t, len(fp1.String()) > 0)
}

func TestImageFingerprintChangesWithContent(t *testing.T) {
	f := newFixture(t)
	f.writeFile("src/main.go", "package main")
	target := f.imageTarget("api", "src")

	before, err := ForImage(target)
	require.NoError(t, err)

	f.writeFile("src/main.go", "package main // edited")
	after, err := ForImage(target)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestImageFingerprintChangesWithRename(t *testing.T) {
	f := newFixture(t)
	f.writeFile("src/a.go", "package main")
	target := f.imageTarget("api", "src")

	before, err := ForImage(target)
	require.NoError(t, err)

	require.NoError(t, os.Rename(f.path("src/a.go"), f.path("src/b.go")))
	after, err := ForImage(target)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestImageFingerprintChangesWithExecBit(t *testing.T) {
	f := newFixture(t)
	f.writeFile("src/build.sh", "#!/bin/sh")
	target := f.imageTarget("api", "src")

	before, err := ForImage(target)
	require.NoError(t, err)

	require.NoError(t, os.Chmod(f.path("src/build.sh"), 0755))
	after, err := ForImage(target)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestImageFingerprintChangesWithRecipe(t *testing.T) {
	f := newFixture(t)
	f.writeFile("src/main.go", "package main")

	a := f.imageTarget("api", "src").
		WithBuildDetails(model.CommandBuild{Command: "make image"})
	b := f.imageTarget("api", "src").
		WithBuildDetails(model.CommandBuild{Command: "make image-v2"})

	fpA, err := ForImage(a)
	require.NoError(t, err)
	fpB, err := ForImage(b)
	require.NoError(t, err)

	assert.NotEqual(t, fpA, fpB)
}

func TestImageFingerprintStableAcrossCheckoutLocation(t *testing.T) {
	f1 := newFixture(t)
	f1.writeFile("src/main.go", "package main")
	f1.writeFile("src/sub/helper.go", "package sub")

	f2 := newFixture(t)
	f2.writeFile("src/main.go", "package main")
	f2.writeFile("src/sub/helper.go", "package sub")

	fp1, err := ForImage(f1.imageTarget("api", "src"))
	require.NoError(t, err)
	fp2, err := ForImage(f2.imageTarget("api", "src"))
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
}

func TestImageFingerprintIgnoresGitDir(t *testing.T) {
	f := newFixture(t)
	f.writeFile("src/main.go", "package main")
	f.writeFile("src/.git/HEAD", "ref: refs/heads/main")
	target := f.imageTarget("api", "src")

	before, err := ForImage(target)
	require.NoError(t, err)

	f.writeFile("src/.git/HEAD", "ref: refs/heads/other")
	after, err := ForImage(target)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestImageFingerprintMissingSrc(t *testing.T) {
	f := newFixture(t)
	target := f.imageTarget("api", "missing")

	_, err := ForImage(target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fingerprinting image://:api")
}

func TestDockerfileBuildHashesDockerfile(t *testing.T) {
	f := newFixture(t)
	f.writeFile("ctx/Dockerfile", "FROM alpine")
	target := model.NewImageTarget(
		model.Label{Target: "api"},
		container.MustParseSelector("gcr.io/test/api"),
	).WithBuildDetails(model.DockerfileBuild{Context: f.path("ctx")})

	before, err := ForImage(target)
	require.NoError(t, err)

	f.writeFile("ctx/Dockerfile", "FROM alpine:3.20")
	after, err := ForImage(target)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestManifestFingerprint(t *testing.T) {
	f := newFixture(t)
	f.writeFile("deploy/app.yaml", "kind: Deployment")
	target := f.manifestTarget("deploy", "deploy/app.yaml")

	before, err := ForManifest(target)
	require.NoError(t, err)

	// Same inputs, same fingerprint.
	again, err := ForManifest(target)
	require.NoError(t, err)
	assert.Equal(t, before, again)

	f.writeFile("deploy/app.yaml", "kind: StatefulSet")
	after, err := ForManifest(target)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestManifestFingerprintChangesWithCluster(t *testing.T) {
	f := newFixture(t)
	f.writeFile("deploy/app.yaml", "kind: Deployment")

	a := f.manifestTarget("deploy", "deploy/app.yaml").WithCluster("staging")
	b := f.manifestTarget("deploy", "deploy/app.yaml").WithCluster("prod")

	fpA, err := ForManifest(a)
	require.NoError(t, err)
	fpB, err := ForManifest(b)
	require.NoError(t, err)

	assert.NotEqual(t, fpA, fpB)
}

func TestShortString(t *testing.T) {
	fp := Fingerprint("sha256:0123456789abcdef0123456789abcdef")
	assert.Equal(t, "0123456789ab", fp.ShortString())
	assert.Equal(t, "", Fingerprint("").ShortString())
}

type fixture struct {
	t   *testing.T
	dir string
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, dir: t.TempDir()}
}

func (f *fixture) path(rel string) string {
	return filepath.Join(f.dir, rel)
}

func (f *fixture) writeFile(rel string, contents string) {
	p := f.path(rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(f.t, os.WriteFile(p, []byte(contents), 0o644))
}

func (f *fixture) imageTarget(name string, srcs ...string) model.ImageTarget {
	paths := make([]string, len(srcs))
	for i, s := range srcs {
		paths[i] = f.path(s)
	}
	return model.NewImageTarget(
		model.Label{Target: name},
		container.MustParseSelector("gcr.io/test/"+name),
	).
		WithBuildDetails(model.CommandBuild{Command: "make " + name}).
		WithSrcs(paths)
}

func (f *fixture) manifestTarget(name string, yamlPaths ...string) model.ManifestTarget {
	paths := make([]string, len(yamlPaths))
	for i, p := range yamlPaths {
		paths[i] = f.path(p)
	}
	return model.NewManifestTarget(model.Label{Target: name}, paths)
}
