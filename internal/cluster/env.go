package cluster

import (
	"strings"

	v1 "k8s.io/api/core/v1"

	"github.com/gantry-dev/gantry/internal/k8s"
)

// Env classifies the cluster product behind a kubeconfig context. We only
// look at the context name; the local cluster tools all stamp a recognizable
// one by default.
type Env string

const (
	EnvUnknown        Env = "unknown"
	EnvGKE            Env = "gke"
	EnvMinikube       Env = "minikube"
	EnvDockerDesktop  Env = "docker-desktop"
	EnvMicroK8s       Env = "microk8s"
	EnvCRC            Env = "crc"
	EnvKind           Env = "kind"
	EnvK3D            Env = "k3d"
	EnvRancherDesktop Env = "rancher-desktop"

	// No context selected at all.
	EnvNone Env = "none"
)

// IsDevCluster reports whether the cluster is a throwaway local one, where
// unpushed image builds are expected to be loadable.
func (e Env) IsDevCluster() bool {
	return e == EnvMinikube ||
		e == EnvDockerDesktop ||
		e == EnvMicroK8s ||
		e == EnvCRC ||
		e == EnvKind ||
		e == EnvK3D ||
		e == EnvRancherDesktop
}

// PullPolicyFor picks the policy injected alongside a built image ref.
// Digest refs are immutable, so IfNotPresent never fetches stale bits; on a
// dev cluster an unpushed image only exists in the local runtime, and any
// pull attempt would fail.
func (e Env) PullPolicyFor(pushed bool) v1.PullPolicy {
	if e.IsDevCluster() && !pushed {
		return v1.PullNever
	}
	return v1.PullIfNotPresent
}

func EnvFromContext(kubeContext k8s.KubeContext) Env {
	n := string(kubeContext)
	if n == "" {
		return EnvNone
	}

	if strings.HasPrefix(n, string(EnvMinikube)) {
		return EnvMinikube
	} else if strings.HasPrefix(n, "docker-for-desktop") || strings.HasPrefix(n, "docker-desktop") {
		return EnvDockerDesktop
	} else if strings.HasPrefix(n, "gke_") {
		// GKE context strings look like:
		// gke_blorg-dev_us-central1-b_blorg
		return EnvGKE
	} else if n == "kind" || strings.HasPrefix(n, "kind-") {
		// As of KinD 0.6.0, KinD uses a context name prefix
		// https://github.com/kubernetes-sigs/kind/issues/1060
		return EnvKind
	} else if strings.HasPrefix(n, "microk8s") {
		return EnvMicroK8s
	} else if strings.HasPrefix(n, "api-crc-testing") {
		return EnvCRC
	} else if strings.HasPrefix(n, "k3d-") {
		return EnvK3D
	} else if n == "rancher-desktop" {
		return EnvRancherDesktop
	}

	return EnvUnknown
}
