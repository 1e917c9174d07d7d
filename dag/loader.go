package dag

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// GraphSpec is the on-disk YAML shape of a graph definition.
//
//	name: swing-trader
//	nodes:
//	  - id: scouting
//	    type: scouting
//	    config: {top_n: 10}
//	  - id: technical
//	    type: technical
//	    inputs: {symbols: scouting.symbols}
type GraphSpec struct {
	Name  string     `yaml:"name"`
	Nodes []NodeSpec `yaml:"nodes"`
}

// LoadGraph reads and validates a graph definition from a YAML file. The
// first path that parses wins, so callers can list fallback locations.
func LoadGraph(paths ...string) (*Graph, error) {
	var lastErr error
	for _, path := range paths {
		spec, err := loadGraphFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		return NewGraph(spec.Nodes)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("dag: no graph definition paths given")
}

// ParseGraph validates a graph definition from raw YAML.
func ParseGraph(data []byte) (*Graph, error) {
	var spec GraphSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("dag: parsing graph definition: %w", err)
	}
	return NewGraph(spec.Nodes)
}

func loadGraphFile(path string) (*GraphSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec GraphSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("dag: parsing %s: %w", path, err)
	}
	return &spec, nil
}
