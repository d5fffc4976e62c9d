package engine

import (
	"github.com/pkg/errors"

	"github.com/gantry-dev/gantry/internal/build"
	"github.com/gantry-dev/gantry/internal/cluster"
	"github.com/gantry-dev/gantry/internal/container"
	"github.com/gantry-dev/gantry/internal/k8s"
	"github.com/gantry-dev/gantry/pkg/model"
)

// ResolvedManifest is a manifest target after image substitution: the
// rendered entities, ready to apply to their cluster. Rebuilt from scratch
// on every run, never cached.
type ResolvedManifest struct {
	ID       model.TargetID
	Entities []k8s.K8sEntity
	Cluster  cluster.Cluster
}

// Binder substitutes built image refs into manifest documents.
//
// Binding is pure: the template files and the records fully determine the
// output, and repeated binds yield byte-identical serializations. That's
// what makes dry-run diffing trustworthy.
type Binder struct {
	clusters *cluster.Registry
}

func NewBinder(clusters *cluster.Registry) *Binder {
	return &Binder{clusters: clusters}
}

// Bind renders the manifest's documents with every declared image
// reference rewritten to the digest ref from its BuildRecord. Each
// declared image must have a record (UnresolvedImageError otherwise) and
// must actually appear in the documents (a mapping that matches nothing
// is dead config and gets rejected rather than silently ignored).
func (b *Binder) Bind(target model.ManifestTarget, records map[model.TargetID]build.BuildRecord) (ResolvedManifest, error) {
	rm, err := b.render(target)
	if err != nil {
		return ResolvedManifest{}, err
	}
	env := rm.Cluster.Env()

	for _, entry := range target.Images {
		record, ok := records[entry.ImageID]
		if !ok || record.Ref == "" {
			return ResolvedManifest{}, UnresolvedImageError{
				Ref:        container.FamiliarString(entry.Selector),
				ImageID:    entry.ImageID,
				ManifestID: target.ID(),
			}
		}
		injectRef, err := record.CanonicalRef()
		if err != nil {
			return ResolvedManifest{}, err
		}
		policy := env.PullPolicyFor(record.Pushed)

		matched := false
		for i, entity := range rm.Entities {
			injected, replaced, err := k8s.InjectImageRef(entity, entry.Selector, injectRef, policy)
			if err != nil {
				return ResolvedManifest{}, errors.Wrapf(err, "binding %s", target.ID())
			}
			if replaced {
				rm.Entities[i] = injected
				matched = true
			}
		}
		if !matched {
			return ResolvedManifest{}, errors.Errorf(
				"manifest %s declares image %s, but no document references it",
				target.ID(), container.FamiliarString(entry.Selector))
		}
	}
	return rm, nil
}

// Render parses and labels the manifest's documents without any image
// substitution. Deletion works on object identity, so down doesn't need
// digests (or builds).
func (b *Binder) Render(target model.ManifestTarget) (ResolvedManifest, error) {
	return b.render(target)
}

func (b *Binder) render(target model.ManifestTarget) (ResolvedManifest, error) {
	cl, ok := b.clusters.Get(target.Cluster)
	if !ok {
		return ResolvedManifest{}, errors.Errorf(
			"manifest %s references undeclared cluster %q", target.ID(), target.Cluster)
	}

	entities, err := k8s.LoadYAMLFromPaths(target.YAMLPaths)
	if err != nil {
		return ResolvedManifest{}, errors.Wrapf(err, "loading yaml for %s", target.ID())
	}

	for i, entity := range entities {
		labeled, err := k8s.InjectLabels(entity, []k8s.LabelPair{k8s.ManagedByGantryLabel()})
		if err != nil {
			return ResolvedManifest{}, errors.Wrapf(err, "labeling %s", target.ID())
		}
		entities[i] = labeled
	}

	return ResolvedManifest{
		ID:       target.ID(),
		Entities: k8s.SortedEntities(entities),
		Cluster:  cl,
	}, nil
}
