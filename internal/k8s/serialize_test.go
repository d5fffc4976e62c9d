package k8s

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/gantry-dev/gantry/internal/k8s/testyaml"
)

func TestParseMultiDocYAML(t *testing.T) {
	entities, err := ParseYAMLFromString(testyaml.ShopAPIYAML)
	require.NoError(t, err)

	require.Equal(t, 2, len(entities))
	assert.Equal(t, "Deployment", entities[0].GVK().Kind)
	assert.Equal(t, "Service", entities[1].GVK().Kind)

	_, ok := entities[0].Obj.(*appsv1.Deployment)
	assert.True(t, ok, "expected a typed Deployment, got %T", entities[0].Obj)
}

func TestParseCustomResourceFallsBackToUnstructured(t *testing.T) {
	entities, err := ParseYAMLFromString(testyaml.CronWorkerCRYAML)
	require.NoError(t, err)

	require.Equal(t, 1, len(entities))
	u, ok := entities[0].Obj.(*unstructured.Unstructured)
	require.True(t, ok, "expected unstructured, got %T", entities[0].Obj)
	assert.Equal(t, "acme.dev/v1", u.GetAPIVersion())
}

func TestParseMissingKind(t *testing.T) {
	_, err := ParseYAMLFromString(`
apiVersion: v1
metadata:
  name: no-kind
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing kind")
}

func TestParseSkipsEmptyDocuments(t *testing.T) {
	yaml := "---\n" + testyaml.NamespaceYAML + "\n---\n---\n"
	entities, err := ParseYAMLFromString(yaml)
	require.NoError(t, err)
	assert.Equal(t, 1, len(entities))
}

func TestRoundTrip(t *testing.T) {
	entities, err := ParseYAMLFromString(testyaml.ShopAPIYAML)
	require.NoError(t, err)

	result, err := SerializeYAML(entities)
	require.NoError(t, err)

	assert.Contains(t, result, "kind: Deployment")
	assert.Contains(t, result, "kind: Service")
	assert.Contains(t, result, "image: gcr.io/acme/shop-api")
	assert.Equal(t, 1, strings.Count(result, "\n---\n"))

	reparsed, err := ParseYAMLFromString(result)
	require.NoError(t, err)
	assert.Equal(t, 2, len(reparsed))
}

func TestLoadYAMLFromPaths(t *testing.T) {
	dir := t.TempDir()
	dep := filepath.Join(dir, "deploy.yaml")
	job := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(dep, []byte(testyaml.ShopAPIYAML), 0644))
	require.NoError(t, os.WriteFile(job, []byte(testyaml.MigrateJobYAML), 0644))

	entities, err := LoadYAMLFromPaths([]string{dep, job})
	require.NoError(t, err)

	require.Equal(t, 3, len(entities))
	assert.Equal(t, "Deployment", entities[0].GVK().Kind)
	assert.Equal(t, "Service", entities[1].GVK().Kind)
	assert.Equal(t, "Job", entities[2].GVK().Kind)
}

func TestLoadYAMLFromPathsNamesBadFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("{not yaml"), 0644))

	_, err := LoadYAMLFromPaths([]string{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}
