package model

import "fmt"

// GroupTarget aggregates other targets under one label so that a whole
// service tree can be resolved, built, or applied with a single name.
// Groups carry no inputs of their own.
type GroupTarget struct {
	Label Label

	dependencyIDs []TargetID
}

func NewGroupTarget(label Label, deps []TargetID) GroupTarget {
	return GroupTarget{Label: label, dependencyIDs: DedupeTargetIDs(deps)}
}

func (g GroupTarget) ID() TargetID { return GroupID(g.Label) }

func (g GroupTarget) DependencyIDs() []TargetID {
	return append([]TargetID{}, g.dependencyIDs...)
}

func (g GroupTarget) Validate() error {
	if g.Label.Empty() {
		return fmt.Errorf("group target missing label")
	}
	if len(g.dependencyIDs) == 0 {
		return fmt.Errorf("group target %s has no members", g.Label)
	}
	return nil
}

var _ TargetSpec = GroupTarget{}
