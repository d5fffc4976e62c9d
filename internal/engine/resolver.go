package engine

import (
	"github.com/pkg/errors"

	"github.com/gantry-dev/gantry/internal/build"
	"github.com/gantry-dev/gantry/internal/cache"
	"github.com/gantry-dev/gantry/internal/fingerprint"
	"github.com/gantry-dev/gantry/pkg/model"
)

// ResolveOrder computes the deterministic build/apply order for the graph.
// It has no side effects; a cycle fails the whole run before anything
// builds or applies.
func ResolveOrder(g *model.TargetGraph) ([]model.TargetSpec, error) {
	return model.TopologicalSort(g.AllTargets())
}

// A Plan is the resolver's full output: the order, each target's current
// fingerprint, the staleness set, and the cache records backing every
// fresh image target.
type Plan struct {
	Order        []model.TargetSpec
	Fingerprints map[model.TargetID]fingerprint.Fingerprint

	// Records holds the cache hit for every fresh image target, so binds
	// can reuse previous digests without rebuilding.
	Records map[model.TargetID]build.BuildRecord

	stale map[model.TargetID]bool
}

func (p *Plan) Stale(id model.TargetID) bool { return p.stale[id] }

// StaleIDs lists the targets requiring a rebuild or re-apply, in plan
// order.
func (p *Plan) StaleIDs() []model.TargetID {
	ids := make([]model.TargetID, 0, len(p.stale))
	for _, t := range p.Order {
		if p.stale[t.ID()] {
			ids = append(ids, t.ID())
		}
	}
	return ids
}

// Resolve orders the graph and computes staleness against the cache store.
//
// A target is stale when its own fingerprint has no live cache record, or
// when anything it transitively depends on is stale. Groups carry no
// inputs, so they only inherit staleness from their members. Because Order
// places dependencies first, one pass suffices for the transitive rule.
func Resolve(g *model.TargetGraph, store cache.Store) (*Plan, error) {
	order, err := ResolveOrder(g)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Order:        order,
		Fingerprints: make(map[model.TargetID]fingerprint.Fingerprint, len(order)),
		Records:      make(map[model.TargetID]build.BuildRecord),
		stale:        make(map[model.TargetID]bool),
	}

	for _, t := range order {
		id := t.ID()
		fp, err := fingerprint.ForTarget(t)
		if err != nil {
			return nil, err
		}
		plan.Fingerprints[id] = fp

		depsStale := false
		for _, depID := range t.DependencyIDs() {
			if plan.stale[depID] {
				depsStale = true
				break
			}
		}

		ownStale := false
		var record build.BuildRecord
		hit := false
		switch t.(type) {
		case model.GroupTarget:
			// No inputs of their own.
		default:
			record, hit, err = store.Get(id, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving %s", id)
			}
			ownStale = !hit
		}

		plan.stale[id] = ownStale || depsStale
		if hit && !plan.stale[id] && id.Type == model.TargetTypeImage {
			// A rebuilt dependency invalidates the hit, so only reuse
			// records for targets staying fresh.
			plan.Records[id] = record
		}
	}
	return plan, nil
}
