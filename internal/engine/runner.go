package engine

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/gantry-dev/gantry/internal/build"
	"github.com/gantry-dev/gantry/internal/cache"
	"github.com/gantry-dev/gantry/internal/cluster"
	"github.com/gantry-dev/gantry/internal/k8s"
	"github.com/gantry-dev/gantry/pkg/logger"
	"github.com/gantry-dev/gantry/pkg/model"
)

// ClusterClientFactory opens an apply client for a cluster. Injected so
// tests (and future non-kubeconfig transports) can swap the transport.
type ClusterClientFactory func(ctx context.Context, c cluster.Cluster) (k8s.Client, error)

// Runner drives one run end to end: resolve, build what's stale, bind,
// apply. The graph is read-only for the duration; the cache store is the
// only thing concurrent workers mutate.
type Runner struct {
	store       cache.Store
	builder     build.ImageBuilder
	binder      *Binder
	clients     ClusterClientFactory
	clock       clockwork.Clock
	parallelism int
}

func NewRunner(
	store cache.Store,
	builder build.ImageBuilder,
	binder *Binder,
	clients ClusterClientFactory,
	clock clockwork.Clock,
	parallelism int) *Runner {
	if parallelism < 1 {
		parallelism = DefaultParallelism()
	}
	return &Runner{
		store:       store,
		builder:     builder,
		binder:      binder,
		clients:     clients,
		clock:       clock,
		parallelism: parallelism,
	}
}

func DefaultParallelism() int {
	n := runtime.NumCPU()
	if n > 4 {
		return 4
	}
	if n < 1 {
		return 1
	}
	return n
}

// Resolve computes the plan without side effects.
func (r *Runner) Resolve(g *model.TargetGraph) (*Plan, error) {
	return Resolve(g, r.store)
}

// Build rebuilds every stale image target, in dependency order, and
// records the results. Manifests are not touched.
func (r *Runner) Build(ctx context.Context, g *model.TargetGraph) (*RunSummary, error) {
	plan, err := Resolve(g, r.store)
	if err != nil {
		return nil, err
	}
	run := r.newRun(plan)
	run.buildImages(ctx)
	return run.summary, nil
}

// Apply runs the full pipeline: build stale images, then bind and apply
// stale manifests in resolver order.
func (r *Runner) Apply(ctx context.Context, g *model.TargetGraph) (*RunSummary, error) {
	plan, err := Resolve(g, r.store)
	if err != nil {
		return nil, err
	}
	run := r.newRun(plan)
	run.buildImages(ctx)
	run.applyTargets(ctx)
	return run.summary, nil
}

// Down deletes every manifest target's entities, dependents before their
// dependencies (reverse resolver order), and drops the apply receipts so
// the next apply doesn't consider the manifests fresh.
func (r *Runner) Down(ctx context.Context, g *model.TargetGraph) (*RunSummary, error) {
	order, err := ResolveOrder(g)
	if err != nil {
		return nil, err
	}

	summary := newRunSummary(newRunID())
	for i := len(order) - 1; i >= 0; i-- {
		target, ok := order[i].(model.ManifestTarget)
		if !ok {
			continue
		}
		id := target.ID()
		start := r.clock.Now()

		rm, err := r.binder.Render(target)
		if err != nil {
			summary.set(TargetResult{ID: id, Status: StatusFailed, Err: err})
			continue
		}
		client, err := r.clients(ctx, rm.Cluster)
		if err != nil {
			summary.set(TargetResult{ID: id, Status: StatusFailed, Err: ApplyError{ID: id, Cause: err}})
			continue
		}
		if err := client.Delete(ctx, rm.Entities); err != nil {
			summary.set(TargetResult{ID: id, Status: StatusFailed, Err: ApplyError{ID: id, Cause: err}})
			continue
		}
		if err := r.store.Delete(id); err != nil {
			logger.Get(ctx).Warnf("dropping apply receipt for %s: %v", id, err)
		}
		summary.set(TargetResult{ID: id, Status: StatusDeleted, Duration: r.clock.Since(start)})
	}
	return summary, nil
}

func newRunID() string {
	return uuid.New().String()[:8]
}

// run holds the mutable state of one Build/Apply invocation.
type run struct {
	runner  *Runner
	plan    *Plan
	summary *RunSummary

	mu      sync.Mutex
	records map[model.TargetID]build.BuildRecord

	// done is closed when the image target reaches a terminal state, so
	// dependent builds can wait on it.
	done map[model.TargetID]chan struct{}
}

func (r *Runner) newRun(plan *Plan) *run {
	run := &run{
		runner:  r,
		plan:    plan,
		summary: newRunSummary(newRunID()),
		records: make(map[model.TargetID]build.BuildRecord, len(plan.Records)),
		done:    make(map[model.TargetID]chan struct{}),
	}
	for id, record := range plan.Records {
		run.records[id] = record
		run.summary.set(TargetResult{ID: id, Status: StatusFresh, Ref: record.Ref})
	}
	return run
}

func (r *run) set(result TargetResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.set(result)
}

func (r *run) setFailed(id model.TargetID, err error) {
	r.set(TargetResult{ID: id, Status: StatusFailed, Err: err})
}

func (r *run) setSkipped(id model.TargetID, because model.TargetID) {
	r.set(TargetResult{ID: id, Status: StatusSkipped, Because: because})
}

func (r *run) recordsSnapshot() map[model.TargetID]build.BuildRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[model.TargetID]build.BuildRecord, len(r.records))
	for id, record := range r.records {
		snapshot[id] = record
	}
	return snapshot
}

// blocker reports the failed upstream target a dependent should blame, if
// any direct dependency failed or was itself skipped. Skips propagate the
// original root cause, not the intermediate skip.
func (r *run) blocker(t model.TargetSpec) (model.TargetID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, depID := range t.DependencyIDs() {
		result, ok := r.summary.results[depID]
		if !ok {
			continue
		}
		switch result.Status {
		case StatusFailed:
			return depID, true
		case StatusSkipped:
			return result.Because, true
		}
	}
	return model.TargetID{}, false
}

// buildImages runs every stale image build on a bounded worker pool.
// Targets with no dependency relation build concurrently; a target waits
// for its dependencies to reach a terminal state first. Failures never
// stop the pool: they mark the transitive dependents skipped and let
// independent branches finish.
func (r *run) buildImages(ctx context.Context) {
	var stale []model.ImageTarget
	for _, t := range r.plan.Order {
		if iTarget, ok := t.(model.ImageTarget); ok && r.plan.Stale(t.ID()) {
			stale = append(stale, iTarget)
			r.done[t.ID()] = make(chan struct{})
		}
	}

	sem := make(chan struct{}, r.runner.parallelism)
	var eg errgroup.Group
	for _, iTarget := range stale {
		iTarget := iTarget
		eg.Go(func() error {
			r.buildOne(ctx, iTarget, sem)
			return nil
		})
	}
	_ = eg.Wait()
}

func (r *run) buildOne(ctx context.Context, target model.ImageTarget, sem chan struct{}) {
	id := target.ID()
	defer close(r.done[id])

	for _, depID := range target.DependencyIDs() {
		if ch, ok := r.done[depID]; ok {
			select {
			case <-ch:
			case <-ctx.Done():
				r.setFailed(id, build.BuildFailure{ID: id, Cause: ctx.Err()})
				return
			}
		}
	}
	if because, blocked := r.blocker(target); blocked {
		r.setSkipped(id, because)
		return
	}

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		r.setFailed(id, build.BuildFailure{ID: id, Cause: ctx.Err()})
		return
	}
	defer func() { <-sem }()

	clock := r.runner.clock
	start := clock.Now()
	logger.Get(ctx).Infof("Building %s", id)

	ref, err := r.runner.builder.Build(ctx, target)
	if err != nil {
		r.setFailed(id, build.BuildFailure{ID: id, Cause: err})
		return
	}

	record := build.BuildRecord{
		TargetID:    id,
		Ref:         ref.String(),
		Fingerprint: r.plan.Fingerprints[id],
		Builder:     r.runner.builder.Name(),
		Pushed:      target.Push,
		RunID:       r.summary.RunID,
		CompletedAt: clock.Now(),
	}
	if err := r.runner.store.Put(record); err != nil {
		r.setFailed(id, build.BuildFailure{ID: id, Cause: err})
		return
	}

	r.mu.Lock()
	r.records[id] = record
	r.mu.Unlock()
	r.set(TargetResult{ID: id, Status: StatusBuilt, Ref: record.Ref, Duration: clock.Since(start)})
}

// applyTargets walks manifests and groups strictly in resolver order, so a
// manifest depending on another manifest applies only after its dependency
// succeeded.
func (r *run) applyTargets(ctx context.Context) {
	for _, t := range r.plan.Order {
		switch target := t.(type) {
		case model.GroupTarget:
			if because, blocked := r.blocker(target); blocked {
				r.setSkipped(target.ID(), because)
			}
		case model.ManifestTarget:
			r.applyOne(ctx, target)
		}
	}
}

func (r *run) applyOne(ctx context.Context, target model.ManifestTarget) {
	id := target.ID()
	if because, blocked := r.blocker(target); blocked {
		r.setSkipped(id, because)
		return
	}
	if !r.plan.Stale(id) {
		r.set(TargetResult{ID: id, Status: StatusFresh})
		return
	}
	if err := ctx.Err(); err != nil {
		r.setFailed(id, ApplyError{ID: id, Cause: err})
		return
	}

	clock := r.runner.clock
	start := clock.Now()

	rm, err := r.runner.binder.Bind(target, r.recordsSnapshot())
	if err != nil {
		r.setFailed(id, err)
		return
	}

	client, err := r.runner.clients(ctx, rm.Cluster)
	if err != nil {
		r.setFailed(id, ApplyError{ID: id, Cause: err})
		return
	}

	logger.Get(ctx).Infof("Applying %s to %s", id, rm.Cluster)
	if err := client.Apply(ctx, rm.Entities); err != nil {
		r.setFailed(id, ApplyError{ID: id, Cause: err})
		return
	}

	receipt := build.BuildRecord{
		TargetID:    id,
		Fingerprint: r.plan.Fingerprints[id],
		RunID:       r.summary.RunID,
		CompletedAt: clock.Now(),
	}
	if err := r.runner.store.Put(receipt); err != nil {
		logger.Get(ctx).Warnf("recording apply receipt for %s: %v", id, err)
	}
	r.set(TargetResult{ID: id, Status: StatusApplied, Duration: clock.Since(start)})
}
