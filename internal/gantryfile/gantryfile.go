// Package gantryfile loads target declarations from per-directory
// Gantryfiles, written in Starlark.
//
// The root Gantryfile's directory is the workspace root. Other packages
// load lazily: referencing //services/api:server pulls in
// <root>/services/api/Gantryfile the first time any loaded declaration
// (or command-line argument) names that package.
package gantryfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.starlark.net/starlark"

	"github.com/gantry-dev/gantry/internal/cluster"
	"github.com/gantry-dev/gantry/pkg/logger"
	"github.com/gantry-dev/gantry/pkg/model"
)

const FileName = "Gantryfile"

// thread-local keys
const (
	packageKey = "gantry.package"
	dirKey     = "gantry.dir"
)

// Result is everything a run needs from configuration: the validated
// graph and the declared clusters.
type Result struct {
	Graph    *model.TargetGraph
	Clusters *cluster.Registry

	// Root is the workspace root directory (where the root Gantryfile
	// lives).
	Root string

	byLabel map[string]model.TargetID
}

// TargetID resolves a label to the ID of the declared target carrying it,
// whatever its kind.
func (r Result) TargetID(l model.Label) (model.TargetID, error) {
	id, ok := r.byLabel[l.String()]
	if !ok {
		return model.TargetID{}, errors.Errorf("no target declared as %s", l)
	}
	return id, nil
}

// AllIDs lists every declared target, in declaration order.
func (r Result) AllIDs() []model.TargetID {
	ids := make([]model.TargetID, 0, r.Graph.Len())
	for _, t := range r.Graph.AllTargets() {
		ids = append(ids, t.ID())
	}
	return ids
}

// Load executes the root Gantryfile at path, then any packages referenced
// by the declarations (transitively) or by wanted labels, and assembles
// the target graph. Structural problems (duplicate targets, unknown
// references, conflicting declarations) fail here, before any side
// effects.
func Load(ctx context.Context, path string, wanted []model.Label) (Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Result{}, errors.Wrap(err, "resolving Gantryfile path")
	}
	if _, err := os.Stat(absPath); err != nil {
		return Result{}, errors.Errorf("no Gantryfile at %s", absPath)
	}

	l := &loader{
		ctx:       ctx,
		root:      filepath.Dir(absPath),
		clusters:  cluster.NewRegistry(),
		loaded:    make(map[string]bool),
		starCache: make(map[string]*starEntry),
	}
	l.predeclared = starlark.StringDict{
		"image":    starlark.NewBuiltin("image", l.imageFn),
		"manifest": starlark.NewBuiltin("manifest", l.manifestFn),
		"group":    starlark.NewBuiltin("group", l.groupFn),
		"cluster":  starlark.NewBuiltin("cluster", l.clusterFn),
	}

	if err := l.loadPackage(""); err != nil {
		return Result{}, err
	}
	for _, lbl := range wanted {
		if err := l.loadPackage(lbl.Package); err != nil {
			return Result{}, err
		}
	}
	if err := l.loadReferencedPackages(); err != nil {
		return Result{}, err
	}

	return l.assemble()
}

type loader struct {
	ctx  context.Context
	root string

	clusters    *cluster.Registry
	decls       []decl
	loaded      map[string]bool
	predeclared starlark.StringDict
	starCache   map[string]*starEntry
}

type starEntry struct {
	globals starlark.StringDict
	err     error
}

func (l *loader) loadPackage(pkg string) error {
	if l.loaded[pkg] {
		return nil
	}
	l.loaded[pkg] = true

	dir := filepath.Join(l.root, filepath.FromSlash(pkg))
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		return errors.Errorf("package //%s has no %s (looked at %s)", pkg, FileName, path)
	}

	logger.Get(l.ctx).Debugf("loading %s", path)
	thread := l.newThread(fmt.Sprintf("//%s", pkg), pkg, dir)
	_, err := starlark.ExecFile(thread, path, nil, l.predeclared)
	if err != nil {
		return wrapEvalError(err, path)
	}
	return nil
}

// loadReferencedPackages runs packages to a fixpoint: executing one
// Gantryfile may reference targets in packages not seen yet.
func (l *loader) loadReferencedPackages() error {
	for {
		var pending []string
		seen := map[string]bool{}
		for _, d := range l.decls {
			for _, lbl := range d.referencedLabels() {
				if !l.loaded[lbl.Package] && !seen[lbl.Package] {
					seen[lbl.Package] = true
					pending = append(pending, lbl.Package)
				}
			}
		}
		if len(pending) == 0 {
			return nil
		}
		sort.Strings(pending)
		for _, pkg := range pending {
			if err := l.loadPackage(pkg); err != nil {
				return err
			}
		}
	}
}

func (l *loader) newThread(name, pkg, dir string) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Get(l.ctx).Infof("%s", msg)
		},
		Load: l.loadStar,
	}
	thread.SetLocal(packageKey, pkg)
	thread.SetLocal(dirKey, dir)
	return thread
}

// loadStar implements the Starlark load() statement for helper files
// (shared functions, constants). Helper files execute once and may not
// declare targets; declarations belong in a Gantryfile.
func (l *loader) loadStar(thread *starlark.Thread, module string) (starlark.StringDict, error) {
	path, err := l.absWorkspacePath(thread, module)
	if err != nil {
		return nil, err
	}

	entry, ok := l.starCache[path]
	if entry != nil && entry.globals == nil && entry.err == nil {
		return nil, errors.Errorf("load cycle through %s", module)
	}
	if !ok {
		entry = &starEntry{}
		l.starCache[path] = entry

		helperThread := l.newThread(module, noDeclarePackage, filepath.Dir(path))
		entry.globals, entry.err = starlark.ExecFile(helperThread, path, nil, l.predeclared)
		if entry.err != nil {
			entry.err = wrapEvalError(entry.err, path)
		}
	}
	return entry.globals, entry.err
}

// noDeclarePackage marks threads where declaration builtins are illegal.
const noDeclarePackage = "\x00helper"

// absWorkspacePath resolves a path that is either workspace-absolute
// ("//tools/helpers.star") or relative to the current file's directory.
func (l *loader) absWorkspacePath(thread *starlark.Thread, path string) (string, error) {
	if strings.HasPrefix(path, "//") {
		return filepath.Join(l.root, filepath.FromSlash(path[2:])), nil
	}
	if filepath.IsAbs(path) {
		return "", errors.Errorf("load path %q must be workspace-relative (// or plain)", path)
	}
	dir, _ := thread.Local(dirKey).(string)
	return filepath.Join(dir, filepath.FromSlash(path)), nil
}

func wrapEvalError(err error, path string) error {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return errors.Errorf("%s", evalErr.Backtrace())
	}
	return errors.Wrapf(err, "loading %s", path)
}
