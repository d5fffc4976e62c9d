package build

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"

	"github.com/gantry-dev/gantry/internal/container"
	"github.com/gantry-dev/gantry/pkg/logger"
	"github.com/gantry-dev/gantry/pkg/model"
)

// DockerCLIBuilder shells out to the local docker CLI for dockerfile
// recipes. The image ID written by --iidfile is itself a sha256 over the
// image config, so it serves as the content-addressed ref without talking
// to a registry.
type DockerCLIBuilder struct {
	// binary is the docker CLI to invoke; overridable for tests.
	binary string
}

var _ ImageBuilder = &DockerCLIBuilder{}

func NewDockerCLIBuilder() *DockerCLIBuilder {
	return &DockerCLIBuilder{binary: "docker"}
}

func (b *DockerCLIBuilder) Name() string { return "docker-cli" }

func (b *DockerCLIBuilder) Build(ctx context.Context, target model.ImageTarget) (reference.Canonical, error) {
	info := target.DockerfileBuildInfo()
	if info.Context == "" {
		return nil, errors.Errorf("target %s is not a dockerfile build", target.ID())
	}

	tmpDir, err := os.MkdirTemp("", "gantry-build-*")
	if err != nil {
		return nil, errors.Wrap(err, "creating build scratch dir")
	}
	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()
	iidPath := filepath.Join(tmpDir, "iid")

	args := []string{"build", "--iidfile", iidPath, "-t", container.FamiliarString(target.Ref)}
	if info.Dockerfile != "" {
		args = append(args, "-f", info.Dockerfile)
	}
	for _, kv := range info.Args {
		args = append(args, "--build-arg", kv)
	}
	args = append(args, info.Context)

	l := logger.Get(ctx)
	w := l.Writer(logger.InfoLvl)

	l.Verbosef("Running %s %s", b.binary, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, b.binary, args...)
	cmd.Env = logger.DefaultEnv(ctx)
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(err, "docker build")
	}

	iid, err := os.ReadFile(iidPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading image id file")
	}
	dig := digest.Digest(strings.TrimSpace(string(iid)))
	if err := dig.Validate(); err != nil {
		return nil, errors.Wrapf(err, "docker wrote malformed image id %q", iid)
	}

	ref, err := container.WithDigest(target.Ref.AsNamed(), dig)
	if err != nil {
		return nil, err
	}

	if target.Push {
		// The tag already points at the built image; push resolves it
		// registry-side. The local image ID stays the canonical ref.
		pushCmd := exec.CommandContext(ctx, b.binary, "push", container.FamiliarString(target.Ref))
		pushCmd.Env = logger.DefaultEnv(ctx)
		pushCmd.Stdout = w
		pushCmd.Stderr = w
		l.Verbosef("Pushing %s", container.FamiliarString(target.Ref))
		if err := pushCmd.Run(); err != nil {
			return nil, errors.Wrap(err, "docker push")
		}
	}
	return ref, nil
}
