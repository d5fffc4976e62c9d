package k8s

import (
	"github.com/distribution/reference"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/gantry-dev/gantry/internal/container"
)

// InjectImageRef rewrites every container image matching the selector to
// injectRef, walking the entity structurally (never substring-replacing
// serialized bytes). The input entity is left untouched; callers get a deep
// copy back along with whether anything matched.
//
// policy, when non-empty, is set on every rewritten container.
func InjectImageRef(entity K8sEntity, selector container.RefSelector, injectRef reference.Named, policy v1.PullPolicy) (K8sEntity, bool, error) {
	entity = entity.DeepCopy()

	if u, ok := entity.Obj.(*unstructured.Unstructured); ok {
		replaced := injectIntoTree(u.Object, selector, injectRef, policy)
		return entity, replaced, nil
	}

	containers, err := extractContainers(&entity)
	if err != nil {
		return K8sEntity{}, false, err
	}

	replaced := false
	for _, c := range containers {
		if selector.MatchesString(c.Image) {
			c.Image = injectRef.String()
			if policy != "" {
				c.ImagePullPolicy = policy
			}
			replaced = true
		}
	}
	return entity, replaced, nil
}

// InjectImagePullPolicy sets the pull policy on all containers of the
// entity, returning a copy.
func InjectImagePullPolicy(entity K8sEntity, policy v1.PullPolicy) (K8sEntity, error) {
	entity = entity.DeepCopy()

	if u, ok := entity.Obj.(*unstructured.Unstructured); ok {
		setPullPolicyInTree(u.Object, policy)
		return entity, nil
	}

	containers, err := extractContainers(&entity)
	if err != nil {
		return K8sEntity{}, err
	}

	for _, c := range containers {
		c.ImagePullPolicy = policy
	}
	return entity, nil
}

// injectIntoTree handles custom resources: any map carrying an "image" key
// whose string value matches the selector gets the new ref. The pull policy
// is only set on container-shaped maps (ones that also declare "name"), so
// bare image-valued fields on custom resources don't grow surprise keys.
func injectIntoTree(node interface{}, selector container.RefSelector, injectRef reference.Named, policy v1.PullPolicy) bool {
	replaced := false
	switch n := node.(type) {
	case map[string]interface{}:
		if img, ok := n["image"].(string); ok && selector.MatchesString(img) {
			n["image"] = injectRef.String()
			if _, isContainer := n["name"]; isContainer && policy != "" {
				n["imagePullPolicy"] = string(policy)
			}
			replaced = true
		}
		for _, v := range n {
			if injectIntoTree(v, selector, injectRef, policy) {
				replaced = true
			}
		}
	case []interface{}:
		for _, v := range n {
			if injectIntoTree(v, selector, injectRef, policy) {
				replaced = true
			}
		}
	}
	return replaced
}

func setPullPolicyInTree(node interface{}, policy v1.PullPolicy) {
	switch n := node.(type) {
	case map[string]interface{}:
		_, hasImage := n["image"].(string)
		_, hasName := n["name"]
		if hasImage && hasName {
			n["imagePullPolicy"] = string(policy)
		}
		for _, v := range n {
			setPullPolicyInTree(v, policy)
		}
	case []interface{}:
		for _, v := range n {
			setPullPolicyInTree(v, policy)
		}
	}
}
