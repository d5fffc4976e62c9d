package build

import (
	"fmt"

	"github.com/gantry-dev/gantry/pkg/model"
)

// BuildFailure reports that one image target failed to build. The run
// collects these rather than aborting: dependents of the failed target are
// skipped, independent subtrees keep going.
type BuildFailure struct {
	ID    model.TargetID
	Cause error
}

func (e BuildFailure) Error() string {
	return fmt.Sprintf("build of %s failed: %v", e.ID, e.Cause)
}

func (e BuildFailure) Unwrap() error { return e.Cause }
