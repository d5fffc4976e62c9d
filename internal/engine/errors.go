package engine

import (
	"fmt"

	"github.com/gantry-dev/gantry/pkg/model"
)

// UnresolvedImageError reports a manifest image mapping with no build
// record to substitute. Usually it means the image's build was skipped
// after an upstream failure; with a healthy graph it indicates a
// misconfigured mapping.
type UnresolvedImageError struct {
	Ref        string
	ImageID    model.TargetID
	ManifestID model.TargetID
}

func (e UnresolvedImageError) Error() string {
	return fmt.Sprintf("manifest %s: no build record for image %s (%s)",
		e.ManifestID, e.Ref, e.ImageID)
}

// ApplyError reports a cluster-side rejection or connectivity failure for
// one manifest target. Not retried; dependents are skipped, independent
// targets keep going.
type ApplyError struct {
	ID    model.TargetID
	Cause error
}

func (e ApplyError) Error() string {
	return fmt.Sprintf("apply of %s failed: %v", e.ID, e.Cause)
}

func (e ApplyError) Unwrap() error { return e.Cause }
