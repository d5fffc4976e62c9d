package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/scheme"

	"github.com/gantry-dev/gantry/internal/k8s/testyaml"
	"github.com/gantry-dev/gantry/internal/testutils"
)

func TestEmptyNamespaceString(t *testing.T) {
	assert.Equal(t, "default", Namespace("").String())
	assert.Equal(t, "staging", Namespace("staging").String())
}

func TestDeleteIgnoresNotFound(t *testing.T) {
	f := newClientFixture(t)

	entities, err := parseYAMLFromStrings(testyaml.NamespaceYAML, testyaml.ShopAPIYAML)
	require.NoError(t, err)

	err = f.client.Delete(f.ctx, entities)
	require.NoError(t, err)
}

func TestDeleteRunsInReverseApplyOrder(t *testing.T) {
	f := newClientFixture(t)

	entities, err := parseYAMLFromStrings(testyaml.NamespaceYAML, testyaml.ShopAPIYAML)
	require.NoError(t, err)

	err = f.client.Delete(f.ctx, entities)
	require.NoError(t, err)

	var resources []string
	for _, action := range f.dyn.Actions() {
		if action.GetVerb() == "delete" {
			resources = append(resources, action.GetResource().Resource)
		}
	}
	assert.Equal(t, []string{"deployments", "services", "namespaces"}, resources,
		"workloads must be deleted before the namespace that holds them")
}

func TestDeleteRemovesExisting(t *testing.T) {
	seed := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "shop-api", Namespace: "default"},
	}
	f := newClientFixture(t, seed)

	entities, err := ParseYAMLFromString(testyaml.ShopAPIYAML)
	require.NoError(t, err)

	err = f.client.Delete(f.ctx, entities)
	require.NoError(t, err)

	gvr := schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
	_, err = f.dyn.Resource(gvr).Namespace("default").Get(f.ctx, "shop-api", metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err), "expected NotFound, got %v", err)
}

func TestToUnstructuredSetsGVKOnBareTypedObjects(t *testing.T) {
	f := newClientFixture(t)

	entity := NewK8sEntity(&appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "api"},
	}, nil)

	u, err := f.client.toUnstructured(entity)
	require.NoError(t, err)
	assert.Equal(t, "Deployment", u.GetKind())
	assert.Equal(t, "apps/v1", u.GetAPIVersion())
}

func TestToUnstructuredCopiesUnstructured(t *testing.T) {
	f := newClientFixture(t)

	entities, err := ParseYAMLFromString(testyaml.CronWorkerCRYAML)
	require.NoError(t, err)

	u, err := f.client.toUnstructured(entities[0])
	require.NoError(t, err)

	u.SetName("changed")
	orig := entities[0].Obj.(*unstructured.Unstructured)
	assert.Equal(t, "shop-reindex", orig.GetName())
}

type clientTestFixture struct {
	t      *testing.T
	ctx    context.Context
	dyn    *dynamicfake.FakeDynamicClient
	client *DynamicClient
}

func newClientFixture(t *testing.T, objects ...runtime.Object) clientTestFixture {
	mapper := meta.NewDefaultRESTMapper(nil)
	mapper.Add(schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}, meta.RESTScopeNamespace)
	mapper.Add(schema.GroupVersionKind{Group: "", Version: "v1", Kind: "Service"}, meta.RESTScopeNamespace)
	mapper.Add(schema.GroupVersionKind{Group: "", Version: "v1", Kind: "Namespace"}, meta.RESTScopeRoot)

	dyn := dynamicfake.NewSimpleDynamicClient(scheme.Scheme, objects...)

	return clientTestFixture{
		t:      t,
		ctx:    testutils.CtxForTest(),
		dyn:    dyn,
		client: NewDynamicClient(dyn, nil, mapper, "kind-test", ""),
	}
}
