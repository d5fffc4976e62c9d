package gantryfile

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gantry-dev/gantry/internal/container"
	"github.com/gantry-dev/gantry/pkg/model"
)

// ImageBindingConflictError reports one image ref bound to two different
// image targets by different manifests. A ref appearing in rendered YAML
// must resolve to exactly one build, whatever manifest (or cluster) the
// document came from; allowing both would make the substitution depend on
// apply order.
type ImageBindingConflictError struct {
	Ref    string
	First  model.TargetID
	Second model.TargetID

	FirstManifest  model.TargetID
	SecondManifest model.TargetID
}

func (e ImageBindingConflictError) Error() string {
	return fmt.Sprintf("image ref %q is bound to both %s (by %s) and %s (by %s)",
		e.Ref, e.First, e.FirstManifest, e.Second, e.SecondManifest)
}

// assemble resolves every declared label to a target ID and builds the
// validated graph. Declaration order is preserved; all structural errors
// (duplicates, unknown or wrong-kind references, binding conflicts)
// surface here.
func (l *loader) assemble() (Result, error) {
	byLabel := make(map[string]model.TargetID, len(l.decls))
	for _, d := range l.decls {
		key := d.label().String()
		if prior, ok := byLabel[key]; ok {
			return Result{}, model.DuplicateTargetError{ID: prior}
		}
		byLabel[key] = declID(d)
	}

	resolve := func(lbl model.Label, owner decl, want model.TargetType) (model.TargetID, error) {
		id, ok := byLabel[lbl.String()]
		if !ok {
			return model.TargetID{}, errors.Errorf("%s: no target declared as %s", owner.label(), lbl)
		}
		if want != "" && id.Type != want {
			return model.TargetID{}, errors.Errorf("%s: %s is a %s target, expected %s",
				owner.label(), lbl, id.Type, want)
		}
		return id, nil
	}

	targets := make([]model.TargetSpec, 0, len(l.decls))
	type binding struct {
		image    model.TargetID
		manifest model.TargetID
	}
	bound := make(map[string]binding)

	for _, d := range l.decls {
		switch d := d.(type) {
		case imageDecl:
			deps := make([]model.TargetID, 0, len(d.deps))
			for _, depLbl := range d.deps {
				id, err := resolve(depLbl, d, model.TargetTypeImage)
				if err != nil {
					return Result{}, err
				}
				deps = append(deps, id)
			}

			target := model.NewImageTarget(d.lbl, d.ref).
				WithSrcs(d.srcs).
				WithDependencyIDs(deps)
			target.Push = d.push
			if d.command != "" {
				target = target.WithBuildDetails(model.CommandBuild{Command: d.command, Dir: d.dir})
			} else {
				target = target.WithBuildDetails(model.DockerfileBuild{
					Dockerfile: d.dockerfile,
					Context:    d.context,
					Args:       d.buildArgs,
				})
			}
			targets = append(targets, target)

		case manifestDecl:
			manifestID := model.ManifestID(d.lbl)
			entries := make([]model.ImageMapEntry, 0, len(d.images))
			for _, b := range d.images {
				imageID, err := resolve(b.image, d, model.TargetTypeImage)
				if err != nil {
					return Result{}, err
				}

				refName := container.FamiliarString(b.selector)
				if prior, ok := bound[refName]; ok && prior.image != imageID {
					return Result{}, ImageBindingConflictError{
						Ref:            refName,
						First:          prior.image,
						Second:         imageID,
						FirstManifest:  prior.manifest,
						SecondManifest: manifestID,
					}
				}
				bound[refName] = binding{image: imageID, manifest: manifestID}

				entries = append(entries, model.ImageMapEntry{Selector: b.selector, ImageID: imageID})
			}

			extraDeps := make([]model.TargetID, 0, len(d.deps))
			for _, depLbl := range d.deps {
				id, err := resolve(depLbl, d, "")
				if err != nil {
					return Result{}, err
				}
				if id.Type == model.TargetTypeImage {
					return Result{}, errors.Errorf(
						"%s: image dependency %s must be declared in images, not deps", d.lbl, depLbl)
				}
				extraDeps = append(extraDeps, id)
			}

			targets = append(targets, model.NewManifestTarget(d.lbl, d.yaml).
				WithImageMaps(entries).
				WithCluster(d.cluster).
				WithExtraDeps(extraDeps))

		case groupDecl:
			deps := make([]model.TargetID, 0, len(d.deps))
			for _, depLbl := range d.deps {
				id, err := resolve(depLbl, d, "")
				if err != nil {
					return Result{}, err
				}
				deps = append(deps, id)
			}
			targets = append(targets, model.NewGroupTarget(d.lbl, deps))
		}
	}

	for _, t := range targets {
		if mt, ok := t.(model.ManifestTarget); ok && mt.Cluster != "" {
			if _, ok := l.clusters.Get(mt.Cluster); !ok {
				return Result{}, errors.Errorf("%s: undeclared cluster %q", mt.Label, mt.Cluster)
			}
		}
	}

	graph, err := model.NewTargetGraph(targets)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Graph:    graph,
		Clusters: l.clusters,
		Root:     l.root,
		byLabel:  byLabel,
	}, nil
}

func declID(d decl) model.TargetID {
	switch d.(type) {
	case imageDecl:
		return model.ImageID(d.label())
	case manifestDecl:
		return model.ManifestID(d.label())
	default:
		return model.GroupID(d.label())
	}
}
