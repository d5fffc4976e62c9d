package k8s

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/gantry-dev/gantry/internal/k8s/testyaml"
)

func TestInjectLabelsDeployment(t *testing.T) {
	entities, err := ParseYAMLFromString(testyaml.ShopAPIYAML)
	require.NoError(t, err)

	newEntity, err := InjectLabels(entities[0], []LabelPair{ManagedByGantryLabel()})
	require.NoError(t, err)

	result, err := SerializeYAML([]K8sEntity{newEntity})
	require.NoError(t, err)

	// Both the Deployment and its pod template get the label.
	assert.Equal(t, 2, strings.Count(result, "app.kubernetes.io/managed-by: gantry"))
}

func TestInjectLabelsDoesNotMutateOriginal(t *testing.T) {
	entities, err := ParseYAMLFromString(testyaml.ShopAPIYAML)
	require.NoError(t, err)

	_, err = InjectLabels(entities[0], []LabelPair{ManagedByGantryLabel()})
	require.NoError(t, err)

	result, err := SerializeYAML(entities)
	require.NoError(t, err)
	assert.NotContains(t, result, "managed-by")
}

func TestInjectLabelsUnstructured(t *testing.T) {
	entities, err := ParseYAMLFromString(testyaml.CronWorkerCRYAML)
	require.NoError(t, err)

	newEntity, err := InjectLabels(entities[0], []LabelPair{ManagedByGantryLabel()})
	require.NoError(t, err)

	u, ok := newEntity.Obj.(*unstructured.Unstructured)
	require.True(t, ok)
	assert.Equal(t, "gantry", u.GetLabels()[ManagedByLabel])

	orig := entities[0].Obj.(*unstructured.Unstructured)
	assert.NotContains(t, orig.GetLabels(), ManagedByLabel)
}

func TestInjectLabelsPreservesExisting(t *testing.T) {
	entities, err := ParseYAMLFromString(testyaml.ShopAPIYAML)
	require.NoError(t, err)

	newEntity, err := InjectLabels(entities[0], []LabelPair{ManagedByGantryLabel()})
	require.NoError(t, err)

	result, err := SerializeYAML([]K8sEntity{newEntity})
	require.NoError(t, err)
	assert.Contains(t, result, "app: shop-api")
}
