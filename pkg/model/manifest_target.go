package model

import (
	"fmt"
	"path/filepath"

	"github.com/gantry-dev/gantry/internal/container"
)

// ImageMapEntry binds one image reference appearing in manifest documents
// to the image target that produces it.
type ImageMapEntry struct {
	// Selector matches container image fields in the rendered documents.
	Selector container.RefSelector

	// ImageID is the image target whose build output replaces the match.
	ImageID TargetID
}

// ManifestTarget declares a set of Kubernetes documents to deploy, the
// image substitutions to perform on them, and the cluster they belong to.
type ManifestTarget struct {
	Label Label

	// YAMLPaths are the template documents, absolute paths, applied in
	// declaration order (then kind-sorted within the rendered set).
	YAMLPaths []string

	// Images lists substitutions in declaration order.
	Images []ImageMapEntry

	// Cluster names an entry in the cluster registry. Empty means the
	// kubeconfig's current context.
	Cluster string

	extraDeps []TargetID
}

func NewManifestTarget(label Label, yamlPaths []string) ManifestTarget {
	return ManifestTarget{Label: label, YAMLPaths: yamlPaths}
}

func (m ManifestTarget) ID() TargetID { return ManifestID(m.Label) }

// DependencyIDs lists image dependencies in mapping order, then the
// explicitly declared deps.
func (m ManifestTarget) DependencyIDs() []TargetID {
	ids := make([]TargetID, 0, len(m.Images)+len(m.extraDeps))
	for _, entry := range m.Images {
		ids = append(ids, entry.ImageID)
	}
	ids = append(ids, m.extraDeps...)
	return DedupeTargetIDs(ids)
}

// ImageDependencyIDs lists only the image targets this manifest binds.
func (m ManifestTarget) ImageDependencyIDs() []TargetID {
	ids := make([]TargetID, 0, len(m.Images))
	for _, entry := range m.Images {
		ids = append(ids, entry.ImageID)
	}
	return DedupeTargetIDs(ids)
}

func (m ManifestTarget) WithImageMaps(entries []ImageMapEntry) ManifestTarget {
	m.Images = entries
	return m
}

// WithExtraDeps declares ordering dependencies on other manifest or group
// targets (for example a namespace manifest that must apply first).
func (m ManifestTarget) WithExtraDeps(ids []TargetID) ManifestTarget {
	m.extraDeps = DedupeTargetIDs(ids)
	return m
}

func (m ManifestTarget) WithCluster(cluster string) ManifestTarget {
	m.Cluster = cluster
	return m
}

func (m ManifestTarget) Validate() error {
	if m.Label.Empty() {
		return fmt.Errorf("manifest target missing label")
	}
	if len(m.YAMLPaths) == 0 {
		return fmt.Errorf("manifest target %s declares no yaml documents", m.Label)
	}
	for _, p := range m.YAMLPaths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("manifest target %s: yaml must be an absolute path (got %q)", m.Label, p)
		}
	}
	for _, entry := range m.Images {
		if entry.Selector.Empty() {
			return fmt.Errorf("manifest target %s: empty image selector", m.Label)
		}
		if entry.ImageID.Type != TargetTypeImage {
			return fmt.Errorf("manifest target %s: image %q maps to non-image target %s",
				m.Label, container.FamiliarString(entry.Selector), entry.ImageID)
		}
	}
	for _, dep := range m.extraDeps {
		if dep.Type == TargetTypeImage {
			return fmt.Errorf("manifest target %s: image dependency %s must be declared in images, not deps",
				m.Label, dep)
		}
	}
	return nil
}

var _ TargetSpec = ManifestTarget{}
