package k8s

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

type LabelPair struct {
	Key   string
	Value string
}

// InjectLabels sets the given labels on the entity and, for typed objects,
// on every nested ObjectMeta (pod templates included), so everything a
// deploy creates can be traced back to it.
func InjectLabels(entity K8sEntity, labels []LabelPair) (K8sEntity, error) {
	entity = entity.DeepCopy()

	if u, ok := entity.Obj.(*unstructured.Unstructured); ok {
		merged := u.GetLabels()
		if merged == nil {
			merged = make(map[string]string, len(labels))
		}
		for _, label := range labels {
			merged[label.Key] = label.Value
		}
		u.SetLabels(merged)
		return entity, nil
	}

	metas, err := extractObjectMetas(&entity)
	if err != nil {
		return K8sEntity{}, err
	}

	for _, meta := range metas {
		for _, label := range labels {
			if meta.Labels == nil {
				meta.Labels = make(map[string]string, 1)
			}
			meta.Labels[label.Key] = label.Value
		}
	}
	return entity, nil
}
