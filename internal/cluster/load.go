package cluster

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTopology reads a topology from a YAML file and validates it.
func LoadTopology(path string) (*Topology, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}
	return ParseTopology(data)
}

// ParseTopology decodes and validates a YAML topology. Unknown fields are
// rejected.
func ParseTopology(data []byte) (*Topology, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var topo Topology
	if err := dec.Decode(&topo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topology: %w", err)
	}
	if err := topo.Validate(); err != nil {
		return nil, fmt.Errorf("topology validation failed: %w", err)
	}
	return &topo, nil
}
