package build

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/distribution/reference"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"

	"github.com/gantry-dev/gantry/internal/container"
	"github.com/gantry-dev/gantry/pkg/logger"
	"github.com/gantry-dev/gantry/pkg/model"
)

const (
	// ExpectedRefEnvVar tells the build command what the image will be
	// called, for recipes that tag as part of the build.
	ExpectedRefEnvVar = "GANTRY_EXPECTED_REF"

	// ImageTarEnvVar is the path the build command must write an OCI/docker
	// image tarball to.
	ImageTarEnvVar = "GANTRY_IMAGE_TAR"
)

// CommandBuilder runs an arbitrary user command that writes the image as a
// tarball to $GANTRY_IMAGE_TAR. The tarball's digest becomes the target's
// content-addressed ref, so any tool that can export an image (bazel,
// buildah, ko, nixery...) plugs in without gantry knowing about it.
type CommandBuilder struct {
	pusher pusher
}

// pusher is swapped out in tests so no registry is needed.
type pusher func(ctx context.Context, ref reference.Canonical, img v1.Image) error

var _ ImageBuilder = &CommandBuilder{}

func NewCommandBuilder() *CommandBuilder {
	return &CommandBuilder{pusher: remotePush}
}

func (b *CommandBuilder) Name() string { return "command" }

func (b *CommandBuilder) Build(ctx context.Context, target model.ImageTarget) (reference.Canonical, error) {
	info := target.CommandBuildInfo()
	if info.Command == "" {
		return nil, errors.Errorf("target %s is not a command build", target.ID())
	}

	tmpDir, err := os.MkdirTemp("", "gantry-build-*")
	if err != nil {
		return nil, errors.Wrap(err, "creating build scratch dir")
	}
	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()
	tarPath := filepath.Join(tmpDir, "image.tar")

	l := logger.Get(ctx)
	expectedRef := container.FamiliarString(target.Ref)

	cmd := exec.CommandContext(ctx, "sh", "-c", info.Command)
	cmd.Dir = info.Dir
	cmd.Env = append(logger.DefaultEnv(ctx),
		fmt.Sprintf("%s=%s", ExpectedRefEnvVar, expectedRef),
		fmt.Sprintf("%s=%s", ImageTarEnvVar, tarPath),
	)

	w := l.Writer(logger.InfoLvl)
	cmd.Stdout = w
	cmd.Stderr = w

	l.Verbosef("Running build command for %s: %q", target.ID(), info.Command)
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "build command %q", info.Command)
	}

	if _, err := os.Stat(tarPath); err != nil {
		return nil, errors.Errorf("build command %q did not write an image tarball to $%s",
			info.Command, ImageTarEnvVar)
	}

	img, err := tarball.ImageFromPath(tarPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "reading image tarball")
	}
	hash, err := img.Digest()
	if err != nil {
		return nil, errors.Wrap(err, "digesting image tarball")
	}

	ref, err := container.WithDigest(target.Ref.AsNamed(), digest.Digest(hash.String()))
	if err != nil {
		return nil, err
	}

	if target.Push {
		l.Verbosef("Pushing %s", ref)
		if err := b.pusher(ctx, ref, img); err != nil {
			return nil, errors.Wrapf(err, "pushing %s", ref)
		}
	}
	return ref, nil
}

func remotePush(ctx context.Context, ref reference.Canonical, img v1.Image) error {
	pushRef, err := name.NewDigest(ref.String())
	if err != nil {
		return err
	}
	return remote.Write(pushRef, img,
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(authn.DefaultKeychain))
}
