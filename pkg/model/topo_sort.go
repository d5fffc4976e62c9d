package model

import (
	"sort"

	"github.com/looplab/tarjan"
)

// TopologicalSort orders targets so that every target appears after all of
// its dependencies. Among targets whose dependencies are all satisfied, the
// lexicographically smallest ID goes first, so the order is reproducible no
// matter how the declarations were written.
//
// A cycle fails the sort with a CycleError naming every target on the
// cycle. A dependency on an undeclared target fails with
// UnknownTargetError.
func TopologicalSort(targets []TargetSpec) ([]TargetSpec, error) {
	byID := make(map[TargetID]TargetSpec, len(targets))
	for _, t := range targets {
		if _, exists := byID[t.ID()]; exists {
			return nil, DuplicateTargetError{ID: t.ID()}
		}
		byID[t.ID()] = t
	}

	indegree := make(map[TargetID]int, len(targets))
	dependents := make(map[TargetID][]TargetID, len(targets))
	for _, t := range targets {
		id := t.ID()
		for _, depID := range t.DependencyIDs() {
			if depID == id {
				return nil, CycleError{Path: []TargetID{id}}
			}
			if _, ok := byID[depID]; !ok {
				return nil, UnknownTargetError{ID: depID, ReferencedBy: id}
			}
			indegree[id]++
			dependents[depID] = append(dependents[depID], id)
		}
	}

	ready := make([]TargetID, 0, len(targets))
	for _, t := range targets {
		if indegree[t.ID()] == 0 {
			ready = append(ready, t.ID())
		}
	}
	sortIDs(ready)

	sorted := make([]TargetSpec, 0, len(targets))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		sorted = append(sorted, byID[id])

		for _, depdt := range dependents[id] {
			indegree[depdt]--
			if indegree[depdt] == 0 {
				ready = insertSorted(ready, depdt)
			}
		}
	}

	if len(sorted) != len(targets) {
		return nil, CycleError{Path: extractCycle(targets, byID, sorted)}
	}
	return sorted, nil
}

func sortIDs(ids []TargetID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}

func insertSorted(ids []TargetID, id TargetID) []TargetID {
	i := sort.Search(len(ids), func(n int) bool {
		return ids[n].String() >= id.String()
	})
	ids = append(ids, TargetID{})
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

// extractCycle names the targets left unsorted after Kahn's algorithm ran
// dry. Strongly connected components of the leftover subgraph are found
// with Tarjan's algorithm (iterative, so a huge graph can't overflow the
// stack); the smallest component by leading ID is reported.
func extractCycle(targets []TargetSpec, byID map[TargetID]TargetSpec, sorted []TargetSpec) []TargetID {
	placed := make(map[TargetID]bool, len(sorted))
	for _, t := range sorted {
		placed[t.ID()] = true
	}

	edges := make(map[interface{}][]interface{})
	for _, t := range targets {
		id := t.ID()
		if placed[id] {
			continue
		}
		for _, depID := range t.DependencyIDs() {
			if !placed[depID] {
				edges[id] = append(edges[id], depID)
			}
		}
	}

	var cycles [][]TargetID
	for _, group := range tarjan.Connections(edges) {
		if len(group) < 2 {
			continue
		}
		members := make([]TargetID, 0, len(group))
		for _, node := range group {
			members = append(members, node.(TargetID))
		}
		cycles = append(cycles, orderCycle(members, byID))
	}
	if len(cycles) == 0 {
		return nil
	}

	// Multiple disjoint cycles: report the one starting at the smallest
	// ID so the error is deterministic.
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0].String() < cycles[j][0].String()
	})
	return cycles[0]
}

// orderCycle walks the component edge by edge from its smallest member,
// always taking the smallest in-component dependency, so the reported
// path follows actual edges and is stable. Members unreachable by the
// greedy walk (components containing several interleaved loops) are
// appended in ID order; every member is always named.
func orderCycle(members []TargetID, byID map[TargetID]TargetSpec) []TargetID {
	sortIDs(members)
	inComponent := make(map[TargetID]bool, len(members))
	for _, id := range members {
		inComponent[id] = true
	}

	path := []TargetID{members[0]}
	visited := map[TargetID]bool{members[0]: true}
	current := members[0]
	for {
		var candidates []TargetID
		for _, depID := range byID[current].DependencyIDs() {
			if inComponent[depID] && !visited[depID] {
				candidates = append(candidates, depID)
			}
		}
		if len(candidates) == 0 {
			break
		}
		sortIDs(candidates)
		current = candidates[0]
		visited[current] = true
		path = append(path, current)
	}

	for _, id := range members {
		if !visited[id] {
			path = append(path, id)
		}
	}
	return path
}
