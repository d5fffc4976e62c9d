package cluster

import (
	"fmt"
	"sort"

	"github.com/gantry-dev/gantry/internal/k8s"
)

// Cluster names a deploy destination: a kubeconfig context plus the
// namespace entities land in when they don't declare one.
//
// The zero Cluster is valid and means "whatever the kubeconfig currently
// points at".
type Cluster struct {
	Name      string
	Context   k8s.KubeContext
	Namespace k8s.Namespace
}

func (c Cluster) Env() Env {
	return EnvFromContext(c.Context)
}

func (c Cluster) String() string {
	if c.Name == "" {
		return "(current context)"
	}
	return fmt.Sprintf("%s (context %q, namespace %q)", c.Name, c.Context, c.Namespace.String())
}

// ClusterConflictError reports a cluster declared twice with different
// settings. Redeclaring identical settings is fine; Gantryfiles load in
// dependency order, not a fixed file order, so declarations must commute.
type ClusterConflictError struct {
	Name      string
	Existing  Cluster
	Redefined Cluster
}

func (e *ClusterConflictError) Error() string {
	return fmt.Sprintf("cluster %q redefined with different settings: had %s, got %s",
		e.Name, e.Existing, e.Redefined)
}

// Registry holds every cluster the loaded Gantryfiles declared.
type Registry struct {
	clusters map[string]Cluster
}

func NewRegistry() *Registry {
	return &Registry{clusters: make(map[string]Cluster)}
}

func (r *Registry) Register(c Cluster) error {
	if c.Name == "" {
		return fmt.Errorf("cluster name cannot be empty")
	}
	existing, ok := r.clusters[c.Name]
	if ok && existing != c {
		return &ClusterConflictError{Name: c.Name, Existing: existing, Redefined: c}
	}
	r.clusters[c.Name] = c
	return nil
}

// Get resolves a manifest's cluster assignment. The empty name is always
// resolvable and yields the zero Cluster (current kubeconfig context).
func (r *Registry) Get(name string) (Cluster, bool) {
	if name == "" {
		return Cluster{}, true
	}
	c, ok := r.clusters[name]
	return c, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clusters))
	for name := range r.clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
