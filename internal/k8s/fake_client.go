package k8s

import (
	"context"
	"sync"
)

var _ Client = &FakeClient{}

// FakeClient records applies and deletes for tests. Set the error fields to
// make the corresponding calls fail.
type FakeClient struct {
	mu sync.Mutex

	ApplyCalls  int
	Applied     []K8sEntity
	LastApplied []K8sEntity
	Deleted     []K8sEntity

	ApplyError   error
	DeleteError  error
	ConnectError error
}

func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

func (c *FakeClient) Apply(ctx context.Context, entities []K8sEntity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ApplyCalls++
	if c.ApplyError != nil {
		return c.ApplyError
	}
	c.Applied = append(c.Applied, entities...)
	c.LastApplied = entities
	return nil
}

func (c *FakeClient) Delete(ctx context.Context, entities []K8sEntity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.DeleteError != nil {
		return c.DeleteError
	}
	c.Deleted = append(c.Deleted, entities...)
	return nil
}

func (c *FakeClient) ConnectedToCluster(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ConnectError
}

// AppliedNames returns the HumanName of every applied entity, in apply order.
func (c *FakeClient) AppliedNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, len(c.Applied))
	for i, e := range c.Applied {
		names[i] = e.HumanName()
	}
	return names
}
