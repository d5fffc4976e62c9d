package build

import (
	"context"
	"sync"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"

	"github.com/gantry-dev/gantry/internal/container"
	"github.com/gantry-dev/gantry/pkg/model"
)

var _ ImageBuilder = &FakeBuilder{}

// FakeBuilder returns a deterministic digest per target without running
// anything. Use BuildErrors to make specific targets fail.
type FakeBuilder struct {
	mu sync.Mutex

	// BuildErrors maps target IDs to the error their build should return.
	BuildErrors map[model.TargetID]error

	// Digests overrides the digest returned for a target. Targets not
	// listed get a digest derived from their ID, so repeated builds of the
	// same target agree.
	Digests map[model.TargetID]digest.Digest

	// BuildCalls records every Build invocation in order.
	BuildCalls []model.TargetID
}

func NewFakeBuilder() *FakeBuilder {
	return &FakeBuilder{
		BuildErrors: make(map[model.TargetID]error),
		Digests:     make(map[model.TargetID]digest.Digest),
	}
}

func (b *FakeBuilder) Name() string { return "fake" }

func (b *FakeBuilder) Build(ctx context.Context, target model.ImageTarget) (reference.Canonical, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := target.ID()
	b.BuildCalls = append(b.BuildCalls, id)

	if err := b.BuildErrors[id]; err != nil {
		return nil, err
	}

	dig, ok := b.Digests[id]
	if !ok {
		dig = digest.FromString(id.String())
	}
	ref, err := container.WithDigest(target.Ref.AsNamed(), dig)
	if err != nil {
		return nil, errors.Wrap(err, "FakeBuilder")
	}
	return ref, nil
}

// BuildCount reports how many times id was built.
func (b *FakeBuilder) BuildCount(id model.TargetID) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := 0
	for _, call := range b.BuildCalls {
		if call == id {
			count++
		}
	}
	return count
}
