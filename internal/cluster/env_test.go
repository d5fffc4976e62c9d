package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	v1 "k8s.io/api/core/v1"

	"github.com/gantry-dev/gantry/internal/k8s"
)

type expectedEnv struct {
	expected Env
	context  string
}

func TestEnvFromContext(t *testing.T) {
	table := []expectedEnv{
		{EnvNone, ""},
		{EnvUnknown, "aws"},
		{EnvMinikube, "minikube"},
		{EnvMinikube, "minikube-dev-cluster-1"},
		{EnvDockerDesktop, "docker-for-desktop"},
		{EnvDockerDesktop, "docker-desktop"},
		{EnvGKE, "gke_blorg-dev_us-central1-b_blorg"},
		{EnvKind, "kind"},
		{EnvKind, "kind-custom-name"},
		{EnvMicroK8s, "microk8s"},
		{EnvCRC, "api-crc-testing"},
		{EnvCRC, "api-crc-testing:6443"},
		{EnvK3D, "k3d-k3s-default"},
		{EnvRancherDesktop, "rancher-desktop"},
		{EnvUnknown, "gke-oops-not-underscore"},
	}

	for _, tt := range table {
		name := tt.context
		if name == "" {
			name = "(empty)"
		}
		t.Run(name, func(t *testing.T) {
			actual := EnvFromContext(k8s.KubeContext(tt.context))
			if actual != tt.expected {
				t.Errorf("Expected %s, actual %s", tt.expected, actual)
			}
		})
	}
}

func TestIsDevCluster(t *testing.T) {
	assert.True(t, EnvMinikube.IsDevCluster())
	assert.True(t, EnvKind.IsDevCluster())
	assert.True(t, EnvK3D.IsDevCluster())
	assert.False(t, EnvGKE.IsDevCluster())
	assert.False(t, EnvUnknown.IsDevCluster())
	assert.False(t, EnvNone.IsDevCluster())
}

func TestPullPolicyFor(t *testing.T) {
	assert.Equal(t, v1.PullNever, EnvKind.PullPolicyFor(false))
	assert.Equal(t, v1.PullIfNotPresent, EnvKind.PullPolicyFor(true))
	assert.Equal(t, v1.PullIfNotPresent, EnvGKE.PullPolicyFor(false))
	assert.Equal(t, v1.PullIfNotPresent, EnvGKE.PullPolicyFor(true))
}
