package model

import "fmt"

// An abstract graph of declared targets and their dependencies.
// Each target has a unique ID within the graph.

type TargetType string

const (
	TargetTypeImage    TargetType = "image"    // container image builds
	TargetTypeManifest TargetType = "manifest" // deployable Kubernetes documents
	TargetTypeGroup    TargetType = "group"    // aggregation of other targets
)

type TargetName string

func (n TargetName) String() string { return string(n) }

type TargetID struct {
	Type TargetType
	Name TargetName
}

func (id TargetID) String() string {
	return fmt.Sprintf("%s:%s", id.Type, id.Name)
}

func (id TargetID) Empty() bool {
	return id.Type == "" && id.Name == ""
}

type TargetSpec interface {
	ID() TargetID

	// DependencyIDs returns the directly declared dependencies,
	// in declaration order.
	DependencyIDs() []TargetID

	Validate() error
}

func ImageID(l Label) TargetID {
	return TargetID{Type: TargetTypeImage, Name: TargetName(l.String())}
}

func ManifestID(l Label) TargetID {
	return TargetID{Type: TargetTypeManifest, Name: TargetName(l.String())}
}

func GroupID(l Label) TargetID {
	return TargetID{Type: TargetTypeGroup, Name: TargetName(l.String())}
}

func DedupeTargetIDs(ids []TargetID) []TargetID {
	result := make([]TargetID, 0, len(ids))
	seen := make(map[TargetID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result
}

func TargetIDStrings(ids []TargetID) []string {
	result := make([]string, len(ids))
	for i, id := range ids {
		result[i] = id.String()
	}
	return result
}
