package k8s

import (
	"context"
	"time"

	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"

	// Client auth plugins! They will auto-init if we import them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/gantry-dev/gantry/pkg/logger"
)

type Namespace string
type KubeContext string

const DefaultNamespace = Namespace("default")

// fieldManager identifies gantry to the apiserver, so that repeated applies
// reconcile against our own previous writes.
const fieldManager = "gantry"

func (n Namespace) String() string {
	if n == "" {
		return string(DefaultNamespace)
	}
	return string(n)
}

func (c KubeContext) String() string { return string(c) }

type Client interface {
	// Updates the entities, creating them if necessary.
	//
	// Tries to update them in-place if possible. But for certain resource types,
	// we might need to fallback to deleting and re-creating them.
	Apply(ctx context.Context, entities []K8sEntity) error

	// Deletes all given entities.
	//
	// Currently ignores any "not found" errors, because that seems like the correct
	// behavior for our use cases.
	Delete(ctx context.Context, entities []K8sEntity) error

	ConnectedToCluster(ctx context.Context) error
}

// DynamicClient applies entities through the dynamic apiserver interface,
// so custom resources need no client-side scheme registration.
type DynamicClient struct {
	dyn              dynamic.Interface
	discovery        discovery.DiscoveryInterface
	mapper           meta.RESTMapper
	kubeContext      KubeContext
	defaultNamespace Namespace
}

var _ Client = &DynamicClient{}

func NewDynamicClient(
	dyn dynamic.Interface,
	disc discovery.DiscoveryInterface,
	mapper meta.RESTMapper,
	kubeContext KubeContext,
	defaultNamespace Namespace) *DynamicClient {
	return &DynamicClient{
		dyn:              dyn,
		discovery:        disc,
		mapper:           mapper,
		kubeContext:      kubeContext,
		defaultNamespace: defaultNamespace,
	}
}

// ClientForContext builds a client against the named kubeconfig context.
// An empty kubeContext means whatever the kubeconfig marks current, and an
// empty kubeconfigPath follows the usual KUBECONFIG resolution rules.
func ClientForContext(kubeconfigPath string, kubeContext KubeContext, defaultNamespace Namespace) (*DynamicClient, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = kubeconfigPath

	overrides := &clientcmd.ConfigOverrides{}
	overrides.CurrentContext = string(kubeContext)

	clientLoader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)
	config, err := clientLoader.ClientConfig()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get config for context %q", kubeContext)
	}

	if defaultNamespace == "" {
		ns, _, err := clientLoader.Namespace()
		if err == nil {
			defaultNamespace = Namespace(ns)
		}
	}

	dyn, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, errors.Wrap(err, "initializing dynamic client")
	}

	disc, err := discovery.NewDiscoveryClientForConfig(config)
	if err != nil {
		return nil, errors.Wrap(err, "initializing discovery client")
	}

	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(disc))
	return NewDynamicClient(dyn, disc, mapper, kubeContext, defaultNamespace), nil
}

func (c *DynamicClient) Apply(ctx context.Context, entities []K8sEntity) error {
	l := logger.Get(ctx)
	for _, entity := range SortedEntities(entities) {
		l.Debugf("applying %s", entity.HumanName())
		if err := c.applyEntity(ctx, entity); err != nil {
			return errors.Wrapf(err, "applying %s", entity.HumanName())
		}
	}
	return nil
}

func (c *DynamicClient) applyEntity(ctx context.Context, entity K8sEntity) error {
	obj, err := c.toUnstructured(entity)
	if err != nil {
		return err
	}

	dr, err := c.resourceFor(obj)
	if err != nil {
		return err
	}

	opts := metav1.ApplyOptions{FieldManager: fieldManager, Force: true}
	_, err = dr.Apply(ctx, obj.GetName(), obj, opts)
	if err == nil {
		return nil
	}

	// Some fields can never be updated in place (e.g. a Job's pod template).
	// The apiserver rejects those applies as invalid, so we recreate instead.
	if apierrors.IsInvalid(err) && entity.ImmutableOnceCreated() {
		logger.Get(ctx).Verbosef("%s has immutable fields, recreating", entity.HumanName())
		if err := c.deleteAndWait(ctx, dr, obj.GetName()); err != nil {
			return err
		}
		_, err = dr.Apply(ctx, obj.GetName(), obj, opts)
	}
	return err
}

func (c *DynamicClient) Delete(ctx context.Context, entities []K8sEntity) error {
	l := logger.Get(ctx)
	for _, entity := range ReverseSortedEntities(entities) {
		l.Debugf("deleting %s", entity.HumanName())

		obj, err := c.toUnstructured(entity)
		if err != nil {
			return err
		}
		dr, err := c.resourceFor(obj)
		if err != nil {
			return err
		}

		err = dr.Delete(ctx, obj.GetName(), deleteOptions())
		if err != nil && !apierrors.IsNotFound(err) {
			return errors.Wrapf(err, "deleting %s", entity.HumanName())
		}
	}
	return nil
}

func (c *DynamicClient) ConnectedToCluster(ctx context.Context) error {
	_, err := c.discovery.ServerVersion()
	if err != nil {
		return errors.Wrapf(err, "cluster %q unreachable", c.kubeContext)
	}
	return nil
}

// deleteAndWait blocks until the apiserver has finished tearing the object
// down. Recreating an entity whose old incarnation is still terminating
// fails, so the immutable-field fallback needs the wait.
func (c *DynamicClient) deleteAndWait(ctx context.Context, dr dynamic.ResourceInterface, name string) error {
	err := dr.Delete(ctx, name, deleteOptions())
	if err != nil && !apierrors.IsNotFound(err) {
		return err
	}

	return wait.PollUntilContextTimeout(ctx, 500*time.Millisecond, 30*time.Second, true,
		func(ctx context.Context) (bool, error) {
			_, err := dr.Get(ctx, name, metav1.GetOptions{})
			if apierrors.IsNotFound(err) {
				return true, nil
			}
			return false, err
		})
}

func deleteOptions() metav1.DeleteOptions {
	policy := metav1.DeletePropagationBackground
	return metav1.DeleteOptions{PropagationPolicy: &policy}
}

// resourceFor resolves the entity's kind against cluster discovery, scoping
// the handle to a namespace when the resource is namespaced.
func (c *DynamicClient) resourceFor(obj *unstructured.Unstructured) (dynamic.ResourceInterface, error) {
	gvk := obj.GroupVersionKind()
	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if meta.IsNoMatchError(err) {
		// The discovery cache may predate a CRD applied earlier in this run.
		if r, ok := c.mapper.(interface{ Reset() }); ok {
			r.Reset()
			mapping, err = c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "no resource mapping for %s", gvk)
	}

	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		ns := obj.GetNamespace()
		if ns == "" {
			ns = c.defaultNamespace.String()
		}
		return c.dyn.Resource(mapping.Resource).Namespace(ns), nil
	}
	return c.dyn.Resource(mapping.Resource), nil
}

func (c *DynamicClient) toUnstructured(entity K8sEntity) (*unstructured.Unstructured, error) {
	if u, ok := entity.Obj.(*unstructured.Unstructured); ok {
		return u.DeepCopy(), nil
	}

	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(entity.Obj)
	if err != nil {
		return nil, errors.Wrapf(err, "converting %s", entity.Name())
	}

	u := &unstructured.Unstructured{Object: content}
	if u.GetKind() == "" {
		// Server-side apply refuses objects without apiVersion/kind.
		u.SetGroupVersionKind(entity.GVK())
	}
	return u, nil
}
