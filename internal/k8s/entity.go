package k8s

import (
	"fmt"
	"reflect"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/scheme"
)

// K8sEntity is one decoded Kubernetes object. Typed objects come from the
// client-go scheme; anything the scheme doesn't know (custom resources)
// rides along as unstructured.
type K8sEntity struct {
	Obj  runtime.Object
	Kind *schema.GroupVersionKind
}

func NewK8sEntity(obj runtime.Object, kind *schema.GroupVersionKind) K8sEntity {
	return K8sEntity{Obj: obj, Kind: kind}
}

func (e K8sEntity) GVK() schema.GroupVersionKind {
	if e.Kind != nil {
		return *e.Kind
	}
	if e.Obj == nil {
		return schema.GroupVersionKind{}
	}

	gvk := e.Obj.GetObjectKind().GroupVersionKind()
	if gvk.Empty() {
		// Programmatically-built typed objects have no TypeMeta, so ask
		// the scheme what they are.
		gvks, _, err := scheme.Scheme.ObjectKinds(e.Obj)
		if err == nil && len(gvks) > 0 {
			return gvks[0]
		}
	}
	return gvk
}

type k8sMeta interface {
	GetName() string
	GetNamespace() string
}

type emptyMeta struct{}

func (emptyMeta) GetName() string      { return "" }
func (emptyMeta) GetNamespace() string { return "" }

var _ k8sMeta = emptyMeta{}
var _ k8sMeta = &metav1.ObjectMeta{}

func (e K8sEntity) meta() k8sMeta {
	unst, isUnstructured := e.Obj.(*unstructured.Unstructured)
	if isUnstructured {
		return unst
	}

	objVal := reflect.ValueOf(e.Obj)
	if objVal.Kind() == reflect.Ptr {
		if objVal.IsNil() {
			return emptyMeta{}
		}
		objVal = objVal.Elem()
	}

	if objVal.Kind() != reflect.Struct {
		return emptyMeta{}
	}

	// Find a field with type ObjectMeta
	omType := reflect.TypeOf(metav1.ObjectMeta{})
	for i := 0; i < objVal.NumField(); i++ {
		fieldVal := objVal.Field(i)
		if omType != fieldVal.Type() {
			continue
		}

		if !fieldVal.CanInterface() {
			continue
		}

		metadata, ok := fieldVal.Interface().(metav1.ObjectMeta)
		if !ok {
			continue
		}

		return &metadata
	}
	return emptyMeta{}
}

func (e K8sEntity) Name() string {
	return e.meta().GetName()
}

func (e K8sEntity) Namespace() Namespace {
	n := e.meta().GetNamespace()
	if n == "" {
		return DefaultNamespace
	}
	return Namespace(n)
}

// Most entities can be updated once running, but a few cannot.
func (e K8sEntity) ImmutableOnceCreated() bool {
	kind := e.GVK().Kind
	return kind == "Job" || kind == "Pod"
}

func (e K8sEntity) DeepCopy() K8sEntity {
	copied := K8sEntity{Obj: e.Obj.DeepCopyObject()}
	if e.Kind != nil {
		// GroupVersionKind is a struct of string values, so dereferencing
		// the pointer is an adequate copy.
		kind := *e.Kind
		copied.Kind = &kind
	}
	return copied
}

// CopyEntities deep-copies a whole slice; binding must never mutate the
// parsed templates it starts from.
func CopyEntities(entities []K8sEntity) []K8sEntity {
	result := make([]K8sEntity, len(entities))
	for i, e := range entities {
		result[i] = e.DeepCopy()
	}
	return result
}

func (e K8sEntity) HumanName() string {
	return fmt.Sprintf("%s/%s", e.GVK().Kind, e.Name())
}
