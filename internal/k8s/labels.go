package k8s

// https://kubernetes.io/docs/concepts/overview/working-with-objects/common-labels/
const ManagedByLabel = "app.kubernetes.io/managed-by"
const ManagedByValue = "gantry"

func ManagedByGantryLabel() LabelPair {
	return LabelPair{
		Key:   ManagedByLabel,
		Value: ManagedByValue,
	}
}
