package k8s

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantry-dev/gantry/internal/k8s/testyaml"
)

func TestSortedEntities(t *testing.T) {
	entities, err := parseYAMLFromStrings(
		testyaml.MigrateJobYAML,
		testyaml.ShopAPIYAML,
		testyaml.NamespaceYAML,
	)
	require.NoError(t, err)

	sorted := SortedEntities(entities)
	kinds := make([]string, len(sorted))
	for i, e := range sorted {
		kinds[i] = e.GVK().Kind
	}

	// Namespace and Service come before the workloads that use them. Job
	// has no place in the known ordering, so it keeps its relative spot
	// at the end.
	assert.Equal(t, []string{"Namespace", "Service", "Deployment", "Job"}, kinds)
}

func TestSortedEntitiesDoesNotMutateInput(t *testing.T) {
	entities, err := parseYAMLFromStrings(testyaml.ShopAPIYAML, testyaml.NamespaceYAML)
	require.NoError(t, err)

	_ = SortedEntities(entities)
	assert.Equal(t, "Deployment", entities[0].GVK().Kind)
}

func TestReverseSortedEntities(t *testing.T) {
	entities, err := parseYAMLFromStrings(testyaml.NamespaceYAML, testyaml.ShopAPIYAML)
	require.NoError(t, err)

	sorted := ReverseSortedEntities(entities)
	require.Equal(t, 3, len(sorted))
	assert.Equal(t, "Namespace", sorted[2].GVK().Kind,
		"the namespace should be deleted last")
}
