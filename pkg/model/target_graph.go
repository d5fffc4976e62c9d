package model

// TargetGraph holds the declared target set for one run. Dependencies are
// kept as an adjacency index keyed by target ID; targets never hold
// back-references to their dependents.
//
// The graph is populated during Gantryfile load and treated as read-only
// once a run starts.
type TargetGraph struct {
	ids  []TargetID // insertion order
	byID map[TargetID]TargetSpec
}

func NewTargetGraph(targets []TargetSpec) (*TargetGraph, error) {
	g := &TargetGraph{byID: make(map[TargetID]TargetSpec, len(targets))}
	for _, t := range targets {
		if err := g.Add(t); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Add inserts a target, failing with DuplicateTargetError when the ID is
// already taken. Dependency existence is checked by Validate, not here,
// so declaration order doesn't matter.
func (g *TargetGraph) Add(t TargetSpec) error {
	id := t.ID()
	if _, exists := g.byID[id]; exists {
		return DuplicateTargetError{ID: id}
	}
	g.byID[id] = t
	g.ids = append(g.ids, id)
	return nil
}

// Validate checks every target's own invariants and that every declared
// dependency names an existing target. Self-dependencies surface as a
// one-element CycleError.
func (g *TargetGraph) Validate() error {
	for _, id := range g.ids {
		t := g.byID[id]
		if err := t.Validate(); err != nil {
			return err
		}
		for _, depID := range t.DependencyIDs() {
			if depID == id {
				return CycleError{Path: []TargetID{id}}
			}
			if _, ok := g.byID[depID]; !ok {
				return UnknownTargetError{ID: depID, ReferencedBy: id}
			}
		}
	}
	return nil
}

func (g *TargetGraph) Len() int {
	return len(g.ids)
}

func (g *TargetGraph) TargetByID(id TargetID) (TargetSpec, error) {
	t, ok := g.byID[id]
	if !ok {
		return nil, UnknownTargetError{ID: id}
	}
	return t, nil
}

// DependencyIDsOf returns the directly declared dependencies of id, in
// declaration order.
func (g *TargetGraph) DependencyIDsOf(id TargetID) ([]TargetID, error) {
	t, err := g.TargetByID(id)
	if err != nil {
		return nil, err
	}
	return t.DependencyIDs(), nil
}

// AllTargets returns a fresh copy of the target list in declaration order,
// so callers can range over it repeatedly without sharing iteration state.
func (g *TargetGraph) AllTargets() []TargetSpec {
	result := make([]TargetSpec, 0, len(g.ids))
	for _, id := range g.ids {
		result = append(result, g.byID[id])
	}
	return result
}

// DependentIDs returns the IDs of targets that directly depend on id, in
// declaration order. Computed from the adjacency index on each call.
func (g *TargetGraph) DependentIDs(id TargetID) []TargetID {
	var result []TargetID
	for _, candidate := range g.ids {
		for _, depID := range g.byID[candidate].DependencyIDs() {
			if depID == id {
				result = append(result, candidate)
				break
			}
		}
	}
	return result
}

// VisitTransitive walks the dependency closure of roots depth-first,
// calling visit in post-order (dependencies before dependents). The walk
// is iterative so pathological graphs can't blow the stack; it assumes the
// graph already validated acyclic.
func (g *TargetGraph) VisitTransitive(roots []TargetID, visit func(t TargetSpec) error) error {
	const (
		stateInProgress = 1
		stateDone       = 2
	)
	state := make(map[TargetID]int, len(g.ids))

	type frame struct {
		id       TargetID
		expanded bool
	}
	var stack []frame
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{id: roots[i]})
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.expanded {
			stack = stack[:len(stack)-1]
			if state[top.id] == stateDone {
				continue
			}
			state[top.id] = stateDone
			t, err := g.TargetByID(top.id)
			if err != nil {
				return err
			}
			if err := visit(t); err != nil {
				return err
			}
			continue
		}

		top.expanded = true
		if state[top.id] != 0 {
			continue
		}
		state[top.id] = stateInProgress

		deps, err := g.DependencyIDsOf(top.id)
		if err != nil {
			return err
		}
		for i := len(deps) - 1; i >= 0; i-- {
			if state[deps[i]] != stateDone {
				stack = append(stack, frame{id: deps[i]})
			}
		}
	}
	return nil
}

// Subgraph returns a new graph restricted to roots and everything they
// transitively depend on, preserving declaration order.
func (g *TargetGraph) Subgraph(roots []TargetID) (*TargetGraph, error) {
	keep := make(map[TargetID]bool)
	err := g.VisitTransitive(roots, func(t TargetSpec) error {
		keep[t.ID()] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	sub := &TargetGraph{byID: make(map[TargetID]TargetSpec, len(keep))}
	for _, id := range g.ids {
		if keep[id] {
			sub.byID[id] = g.byID[id]
			sub.ids = append(sub.ids, id)
		}
	}
	return sub, nil
}
