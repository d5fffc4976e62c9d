package k8s

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	runtimejson "k8s.io/apimachinery/pkg/runtime/serializer/json"
	"k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/kubernetes/scheme"
)

func ParseYAMLFromString(yaml string) ([]K8sEntity, error) {
	buf := bytes.NewBuffer([]byte(yaml))
	return ParseYAML(buf)
}

// ParseYAML decodes a stream of YAML documents into entities.
// Loosely based on
// https://github.com/kubernetes/cli-runtime/blob/d6a36215b15f83b94578f2ffce5d00447972e8ae/pkg/genericclioptions/resource/visitor.go#L583
func ParseYAML(k8sYaml io.Reader) ([]K8sEntity, error) {
	reader := bufio.NewReader(k8sYaml)
	decoder := yaml.NewYAMLOrJSONDecoder(reader, 4096)

	result := make([]K8sEntity, 0)
	for {
		ext := runtime.RawExtension{}
		if err := decoder.Decode(&ext); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		ext.Raw = bytes.TrimSpace(ext.Raw)

		// NOTE: the null check is silly, but it's what kubectl does.
		if len(ext.Raw) == 0 || bytes.Equal(ext.Raw, []byte("null")) {
			continue
		}

		entity, err := decodeRawJSON(ext.Raw)
		if err != nil {
			return nil, err
		}
		result = append(result, entity)
	}

	return result, nil
}

// decodeRawJSON decodes one document (already converted to JSON). Types the
// scheme knows come back typed; custom resources fall back to unstructured.
func decodeRawJSON(raw []byte) (K8sEntity, error) {
	deserializer := scheme.Codecs.UniversalDeserializer()
	obj, groupVersionKind, err := deserializer.Decode(raw, nil, nil)
	if err == nil {
		return K8sEntity{Obj: obj, Kind: groupVersionKind}, nil
	}
	if !runtime.IsNotRegisteredError(err) && !runtime.IsMissingKind(err) {
		return K8sEntity{}, err
	}

	u := &unstructured.Unstructured{}
	if jsonErr := json.Unmarshal(raw, &u.Object); jsonErr != nil {
		return K8sEntity{}, jsonErr
	}
	gvk := u.GroupVersionKind()
	if gvk.Kind == "" {
		return K8sEntity{}, errors.Errorf("missing kind: %s", string(raw))
	}
	return K8sEntity{Obj: u, Kind: &gvk}, nil
}

// LoadYAMLFromPaths parses every document in the given files, preserving
// file and document order.
func LoadYAMLFromPaths(paths []string) ([]K8sEntity, error) {
	var result []K8sEntity
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading manifest template")
		}
		entities, err := ParseYAML(f)
		_ = f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", path)
		}
		result = append(result, entities...)
	}
	return result, nil
}

func SerializeYAML(decoded []K8sEntity) (string, error) {
	yamlSerializer := runtimejson.NewYAMLSerializer(runtimejson.DefaultMetaFactory, scheme.Scheme, scheme.Scheme)
	buf := bytes.NewBuffer(nil)
	for i, obj := range decoded {
		if i != 0 {
			buf.Write([]byte("\n---\n"))
		}
		err := yamlSerializer.Encode(obj.Obj, buf)
		if err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
