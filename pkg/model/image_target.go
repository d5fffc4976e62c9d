package model

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/gantry-dev/gantry/internal/container"
)

// ImageTarget declares one container image build: the symbolic ref that
// manifests use to name the image, the recipe that produces it, and the
// source files whose contents feed the target's fingerprint.
type ImageTarget struct {
	Label Label

	// Ref is the image name as it appears in manifest documents.
	// Built artifacts are pushed/tagged under this name.
	Ref container.RefSelector

	BuildDetails BuildDetails

	// Push uploads the built image to its registry after the build.
	// Leave false for clusters that share the local image store.
	Push bool

	srcs          []string
	dependencyIDs []TargetID
}

func NewImageTarget(label Label, ref container.RefSelector) ImageTarget {
	return ImageTarget{Label: label, Ref: ref}
}

func (i ImageTarget) ID() TargetID { return ImageID(i.Label) }

func (i ImageTarget) DependencyIDs() []TargetID {
	return append([]TargetID{}, i.dependencyIDs...)
}

func (i ImageTarget) WithDependencyIDs(ids []TargetID) ImageTarget {
	i.dependencyIDs = DedupeTargetIDs(ids)
	return i
}

func (i ImageTarget) WithBuildDetails(details BuildDetails) ImageTarget {
	i.BuildDetails = details
	return i
}

// WithSrcs records the declared input paths. Paths must be absolute; they
// are sorted and deduped so fingerprinting sees a canonical order.
func (i ImageTarget) WithSrcs(paths []string) ImageTarget {
	deduped := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			deduped = append(deduped, p)
		}
	}
	sort.Strings(deduped)
	i.srcs = deduped
	return i
}

func (i ImageTarget) Srcs() []string {
	return append([]string{}, i.srcs...)
}

func (i ImageTarget) Validate() error {
	if i.Label.Empty() {
		return fmt.Errorf("image target missing label")
	}
	if i.Ref.Empty() {
		return fmt.Errorf("image target %s missing image ref", i.Label)
	}
	for _, p := range i.srcs {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("image target %s: src must be an absolute path (got %q)", i.Label, p)
		}
	}

	switch details := i.BuildDetails.(type) {
	case CommandBuild:
		if details.Command == "" {
			return fmt.Errorf("image target %s: build command must not be empty", i.Label)
		}
	case DockerfileBuild:
		if details.Context == "" {
			return fmt.Errorf("image target %s missing build context", i.Label)
		}
	default:
		return fmt.Errorf("image target %s has no build recipe", i.Label)
	}
	return nil
}

type BuildDetails interface {
	buildDetails()
}

// CommandBuild runs an arbitrary command that writes the image as an OCI
// tarball to the path given in $GANTRY_IMAGE_TAR.
type CommandBuild struct {
	Command string

	// Dir is the working directory for the command, typically the
	// directory of the declaring Gantryfile.
	Dir string
}

func (CommandBuild) buildDetails() {}

// DockerfileBuild invokes the local docker CLI.
type DockerfileBuild struct {
	Dockerfile string // path to the Dockerfile; empty means <Context>/Dockerfile
	Context    string // absolute path to the build context

	// Args are "KEY=VALUE" build args, sorted at declaration time so
	// fingerprints don't depend on map iteration order.
	Args []string
}

func (DockerfileBuild) buildDetails() {}

func (i ImageTarget) CommandBuildInfo() CommandBuild {
	details, _ := i.BuildDetails.(CommandBuild)
	return details
}

func (i ImageTarget) DockerfileBuildInfo() DockerfileBuild {
	details, _ := i.BuildDetails.(DockerfileBuild)
	return details
}

func (i ImageTarget) IsCommandBuild() bool {
	_, ok := i.BuildDetails.(CommandBuild)
	return ok
}

func (i ImageTarget) IsDockerfileBuild() bool {
	_, ok := i.BuildDetails.(DockerfileBuild)
	return ok
}

var _ TargetSpec = ImageTarget{}
