package gantryfile

import (
	"fmt"
	"path/filepath"
	"sort"

	"go.starlark.net/starlark"

	"github.com/gantry-dev/gantry/internal/cluster"
	"github.com/gantry-dev/gantry/internal/container"
	"github.com/gantry-dev/gantry/internal/k8s"
	"github.com/gantry-dev/gantry/pkg/model"
)

// A decl is one target declaration, as written. Labels stay unresolved
// until every package has loaded; see assemble.go.
type decl interface {
	label() model.Label
	referencedLabels() []model.Label
}

type imageDecl struct {
	lbl  model.Label
	ref  container.RefSelector
	push bool
	srcs []string
	deps []model.Label

	command string
	dir     string

	dockerfile string
	context    string
	buildArgs  []string
}

func (d imageDecl) label() model.Label              { return d.lbl }
func (d imageDecl) referencedLabels() []model.Label { return d.deps }

type manifestDecl struct {
	lbl     model.Label
	yaml    []string
	images  []imageBinding
	cluster string
	deps    []model.Label
}

type imageBinding struct {
	selector container.RefSelector
	image    model.Label
}

func (d manifestDecl) label() model.Label { return d.lbl }
func (d manifestDecl) referencedLabels() []model.Label {
	labels := append([]model.Label{}, d.deps...)
	for _, b := range d.images {
		labels = append(labels, b.image)
	}
	return labels
}

type groupDecl struct {
	lbl  model.Label
	deps []model.Label
}

func (d groupDecl) label() model.Label              { return d.lbl }
func (d groupDecl) referencedLabels() []model.Label { return d.deps }

// declSite reads the current thread's package and directory, rejecting
// declarations from helper (.star) files.
func (l *loader) declSite(thread *starlark.Thread, fn *starlark.Builtin) (pkg string, dir string, err error) {
	pkg, _ = thread.Local(packageKey).(string)
	dir, _ = thread.Local(dirKey).(string)
	if pkg == noDeclarePackage {
		return "", "", fmt.Errorf("%s: targets may only be declared in a %s, not in loaded helper files", fn.Name(), FileName)
	}
	return pkg, dir, nil
}

func (l *loader) imageFn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, ref, command, dockerfile, contextDir string
	var srcsVal, depsVal starlark.Value
	var buildArgsVal *starlark.Dict
	var push bool
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &name,
		"ref", &ref,
		"command?", &command,
		"dockerfile?", &dockerfile,
		"context?", &contextDir,
		"srcs?", &srcsVal,
		"build_args?", &buildArgsVal,
		"push?", &push,
		"deps?", &depsVal,
	); err != nil {
		return nil, err
	}

	pkg, dir, err := l.declSite(thread, fn)
	if err != nil {
		return nil, err
	}
	lbl, err := model.ParseLabelInPackage(name, pkg)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}

	selector, err := container.ParseSelector(ref)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %v", fn.Name(), name, err)
	}

	if (command == "") == (dockerfile == "" && contextDir == "") {
		return nil, fmt.Errorf("%s %q: declare exactly one of command or dockerfile/context", fn.Name(), name)
	}

	srcs, err := stringList(srcsVal, "srcs")
	if err != nil {
		return nil, fmt.Errorf("%s %q: %v", fn.Name(), name, err)
	}
	deps, err := labelList(depsVal, "deps", pkg)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %v", fn.Name(), name, err)
	}

	d := imageDecl{
		lbl:  lbl,
		ref:  selector,
		push: push,
		srcs: absAll(dir, srcs),
		deps: deps,
	}
	if command != "" {
		d.command = command
		d.dir = dir
	} else {
		if contextDir == "" {
			contextDir = "."
		}
		d.context = filepath.Join(dir, filepath.FromSlash(contextDir))
		if dockerfile != "" {
			d.dockerfile = filepath.Join(dir, filepath.FromSlash(dockerfile))
		}
		d.buildArgs, err = buildArgList(buildArgsVal)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %v", fn.Name(), name, err)
		}
	}

	l.decls = append(l.decls, d)
	return starlark.None, nil
}

func (l *loader) manifestFn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, clusterName string
	var yamlVal, depsVal starlark.Value
	var imagesVal *starlark.Dict
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &name,
		"yaml", &yamlVal,
		"images?", &imagesVal,
		"cluster?", &clusterName,
		"deps?", &depsVal,
	); err != nil {
		return nil, err
	}

	pkg, dir, err := l.declSite(thread, fn)
	if err != nil {
		return nil, err
	}
	lbl, err := model.ParseLabelInPackage(name, pkg)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}

	yamlPaths, err := stringList(yamlVal, "yaml")
	if err != nil {
		return nil, fmt.Errorf("%s %q: %v", fn.Name(), name, err)
	}
	deps, err := labelList(depsVal, "deps", pkg)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %v", fn.Name(), name, err)
	}

	var bindings []imageBinding
	if imagesVal != nil {
		for _, item := range imagesVal.Items() {
			refStr, ok := starlark.AsString(item[0])
			if !ok {
				return nil, fmt.Errorf("%s %q: images key must be a string, got %s", fn.Name(), name, item[0].Type())
			}
			labelStr, ok := starlark.AsString(item[1])
			if !ok {
				return nil, fmt.Errorf("%s %q: images value must be a label string, got %s", fn.Name(), name, item[1].Type())
			}
			selector, err := container.ParseSelector(refStr)
			if err != nil {
				return nil, fmt.Errorf("%s %q: images key %q: %v", fn.Name(), name, refStr, err)
			}
			imageLbl, err := model.ParseLabelInPackage(labelStr, pkg)
			if err != nil {
				return nil, fmt.Errorf("%s %q: images value %q: %v", fn.Name(), name, labelStr, err)
			}
			bindings = append(bindings, imageBinding{selector: selector, image: imageLbl})
		}
	}

	l.decls = append(l.decls, manifestDecl{
		lbl:     lbl,
		yaml:    absAll(dir, yamlPaths),
		images:  bindings,
		cluster: clusterName,
		deps:    deps,
	})
	return starlark.None, nil
}

func (l *loader) groupFn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var depsVal starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &name,
		"deps", &depsVal,
	); err != nil {
		return nil, err
	}

	pkg, _, err := l.declSite(thread, fn)
	if err != nil {
		return nil, err
	}
	lbl, err := model.ParseLabelInPackage(name, pkg)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	deps, err := labelList(depsVal, "deps", pkg)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %v", fn.Name(), name, err)
	}

	l.decls = append(l.decls, groupDecl{lbl: lbl, deps: deps})
	return starlark.None, nil
}

func (l *loader) clusterFn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, kubeContext, namespace string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &name,
		"context?", &kubeContext,
		"namespace?", &namespace,
	); err != nil {
		return nil, err
	}

	err := l.clusters.Register(cluster.Cluster{
		Name:      name,
		Context:   k8s.KubeContext(kubeContext),
		Namespace: k8s.Namespace(namespace),
	})
	if err != nil {
		return nil, err
	}
	return starlark.None, nil
}

// stringList accepts a string or a list/tuple of strings.
func stringList(v starlark.Value, field string) ([]string, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}
	if s, ok := starlark.AsString(v); ok {
		return []string{s}, nil
	}
	seq, ok := v.(starlark.Sequence)
	if !ok {
		return nil, fmt.Errorf("%s: expected string or list of strings, got %s", field, v.Type())
	}

	var out []string
	iter := seq.Iterate()
	defer iter.Done()
	var item starlark.Value
	for iter.Next(&item) {
		s, ok := starlark.AsString(item)
		if !ok {
			return nil, fmt.Errorf("%s: expected string element, got %s", field, item.Type())
		}
		out = append(out, s)
	}
	return out, nil
}

func labelList(v starlark.Value, field, pkg string) ([]model.Label, error) {
	strs, err := stringList(v, field)
	if err != nil {
		return nil, err
	}
	labels := make([]model.Label, 0, len(strs))
	for _, s := range strs {
		lbl, err := model.ParseLabelInPackage(s, pkg)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", field, err)
		}
		labels = append(labels, lbl)
	}
	return labels, nil
}

// buildArgList flattens a build_args dict into sorted KEY=VALUE form, so
// fingerprints don't depend on declaration order.
func buildArgList(d *starlark.Dict) ([]string, error) {
	if d == nil {
		return nil, nil
	}
	out := make([]string, 0, d.Len())
	for _, item := range d.Items() {
		k, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("build_args key must be a string, got %s", item[0].Type())
		}
		v, ok := starlark.AsString(item[1])
		if !ok {
			return nil, fmt.Errorf("build_args value must be a string, got %s", item[1].Type())
		}
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out, nil
}

func absAll(dir string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = p
			continue
		}
		out[i] = filepath.Join(dir, filepath.FromSlash(p))
	}
	return out
}
