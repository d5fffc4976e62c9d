package model

import (
	"fmt"
	"strings"
)

// DuplicateTargetError reports two declarations of the same target ID.
type DuplicateTargetError struct {
	ID TargetID
}

func (e DuplicateTargetError) Error() string {
	return fmt.Sprintf("target %s declared more than once", e.ID)
}

// UnknownTargetError reports a reference to a target that does not exist
// in the graph.
type UnknownTargetError struct {
	ID TargetID

	// ReferencedBy is the target whose dependency list names the missing
	// ID; zero when the lookup came from a direct query.
	ReferencedBy TargetID
}

func (e UnknownTargetError) Error() string {
	if e.ReferencedBy.Empty() {
		return fmt.Sprintf("unknown target %s", e.ID)
	}
	return fmt.Sprintf("unknown target %s (dependency of %s)", e.ID, e.ReferencedBy)
}

// CycleError reports a dependency cycle. Path holds every target on the
// cycle, in edge order, starting from the lexicographically smallest
// member so the message is stable.
type CycleError struct {
	Path []TargetID
}

func (e CycleError) Error() string {
	parts := make([]string, 0, len(e.Path)+1)
	for _, id := range e.Path {
		parts = append(parts, id.String())
	}
	if len(e.Path) > 0 {
		parts = append(parts, e.Path[0].String())
	}
	return fmt.Sprintf("dependency cycle: %s", strings.Join(parts, " -> "))
}
