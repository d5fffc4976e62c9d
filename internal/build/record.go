package build

import (
	"time"

	"github.com/distribution/reference"
	"github.com/pkg/errors"

	"github.com/gantry-dev/gantry/internal/container"
	"github.com/gantry-dev/gantry/internal/fingerprint"
	"github.com/gantry-dev/gantry/pkg/model"
)

// BuildRecord is the durable receipt for a target's last successful action:
// for image targets, the content-addressed ref the build produced; for
// manifest targets, the fingerprint that was applied. The cache store
// persists one live record per target.
type BuildRecord struct {
	TargetID model.TargetID `json:"target_id"`

	// Ref is the immutable content ref (name@sha256:...) for image
	// targets. Empty on manifest receipts.
	Ref string `json:"ref,omitempty"`

	// Fingerprint of the target's declared inputs at the time the action
	// succeeded.
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`

	// Builder names the adapter that produced the image ("command",
	// "docker-cli", "fake").
	Builder string `json:"builder,omitempty"`

	// Pushed records whether the artifact went to its registry. Unpushed
	// images only exist in the local runtime, which changes the pull
	// policy injected at bind time.
	Pushed bool `json:"pushed,omitempty"`

	// RunID ties the record back to the run that wrote it.
	RunID string `json:"run_id,omitempty"`

	CompletedAt time.Time `json:"completed_at"`
}

func (r BuildRecord) Empty() bool {
	return r.TargetID.Empty()
}

// CanonicalRef parses the stored content ref.
func (r BuildRecord) CanonicalRef() (reference.Canonical, error) {
	if r.Ref == "" {
		return nil, errors.Errorf("record for %s has no image ref", r.TargetID)
	}
	named, err := container.ParseNamed(r.Ref)
	if err != nil {
		return nil, errors.Wrapf(err, "record for %s", r.TargetID)
	}
	canonical, ok := named.(reference.Canonical)
	if !ok {
		return nil, errors.Errorf("record ref %q for %s is not content-addressed", r.Ref, r.TargetID)
	}
	return canonical, nil
}
