package policy

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML-encoded Spec document.
func Parse(data []byte) (Spec, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Spec{}, fmt.Errorf("policy: empty spec document")
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Spec{}, fmt.Errorf("policy: yaml: %w", err)
	}
	return spec, nil
}

// ParseFromReader reads r fully and delegates to Parse.
func ParseFromReader(r io.Reader) (Spec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Spec{}, fmt.Errorf("policy: read spec: %w", err)
	}
	return Parse(data)
}

// Marshal serializes spec to YAML.
func Marshal(spec Spec) ([]byte, error) {
	return yaml.Marshal(spec)
}
