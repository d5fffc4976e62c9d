package container

import (
	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// ParseNamed parses a normalized image reference ("gcr.io/acme/api",
// "api:latest", etc.), resolving Docker Hub shorthand the same way the
// container runtimes do.
func ParseNamed(s string) (reference.Named, error) {
	ref, err := reference.ParseNormalizedNamed(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing image ref %q", s)
	}
	return ref, nil
}

func MustParseNamed(s string) reference.Named {
	ref, err := ParseNamed(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// WithDigest pins a name to a content-addressed digest, producing the
// canonical "name@sha256:..." form that gets injected into manifests.
// Any tag on the input name is stripped first; a tagged-and-digested ref
// confuses some admission webhooks.
func WithDigest(ref reference.Named, dig digest.Digest) (reference.Canonical, error) {
	if err := dig.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid digest for %q", ref.Name())
	}
	canonical, err := reference.WithDigest(reference.TrimNamed(ref), dig)
	if err != nil {
		return nil, errors.Wrapf(err, "pinning %q to %s", ref.Name(), dig)
	}
	return canonical, nil
}

// FamiliarString renders a ref the way users wrote it (elides the
// implicit docker.io/library/ prefix).
func FamiliarString(ref reference.Reference) string {
	if sel, ok := ref.(RefSelector); ok {
		return reference.FamiliarString(sel.ref)
	}
	return reference.FamiliarString(ref)
}
