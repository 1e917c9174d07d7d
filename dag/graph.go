// Package dag resolves a declared agent graph into ordered execution waves
// and drives agents through them. Input mappings double as dependency edges:
// a node that consumes "scouting.symbols" depends on the "scouting" node.
package dag

import (
	"sort"
	"strings"

	"github.com/swingdesk/swingdesk/errors"
)

// NodeSpec declares one unit of the graph.
type NodeSpec struct {
	// ID is the unique node identifier, used as the results-map key.
	ID string `yaml:"id" json:"id"`
	// Type names the registered agent factory that implements this node.
	Type string `yaml:"type" json:"type"`
	// Config is static configuration passed to the factory.
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	// Inputs maps this node's input field to "producerId.outputField", or to
	// "producerId" for whole-output passthrough. A node with no inputs is a
	// root and receives the initial input verbatim.
	Inputs map[string]string `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	// NoCache excludes this node's results from the shared result cache.
	NoCache bool `yaml:"no_cache,omitempty" json:"no_cache,omitempty"`
}

// InputRef is one parsed entry of a node's input mapping.
type InputRef struct {
	Field    string // input field on the consuming node
	Producer string // producer node ID
	Output   string // output field on the producer; empty = whole output
}

// Graph is a validated set of nodes with derived adjacency. Construction
// fails on duplicate IDs, references to unknown producers, and cycles, so a
// Graph in hand is always executable.
type Graph struct {
	nodes   []NodeSpec
	byID    map[string]NodeSpec
	inputs  map[string][]InputRef // node -> parsed input refs
	deps    map[string][]string   // node -> producers (declaration order, deduped)
	readers map[string][]string   // producer -> consumers
	waves   [][]string
}

// NewGraph validates the node declarations and resolves execution waves.
func NewGraph(nodes []NodeSpec) (*Graph, error) {
	g := &Graph{
		nodes:   nodes,
		byID:    make(map[string]NodeSpec, len(nodes)),
		inputs:  make(map[string][]InputRef, len(nodes)),
		deps:    make(map[string][]string, len(nodes)),
		readers: make(map[string][]string),
	}

	for _, n := range nodes {
		if n.ID == "" {
			return nil, errors.Validation("node id is required")
		}
		if _, exists := g.byID[n.ID]; exists {
			return nil, errors.DuplicateNode(n.ID)
		}
		g.byID[n.ID] = n
	}

	for _, n := range nodes {
		refs := parseInputs(n)
		g.inputs[n.ID] = refs

		seen := make(map[string]bool)
		for _, ref := range refs {
			if _, ok := g.byID[ref.Producer]; !ok {
				return nil, errors.UnknownProducer(n.ID, ref.Producer)
			}
			if seen[ref.Producer] {
				continue
			}
			seen[ref.Producer] = true
			g.deps[n.ID] = append(g.deps[n.ID], ref.Producer)
			g.readers[ref.Producer] = append(g.readers[ref.Producer], n.ID)
		}
	}

	waves, err := g.buildWaves()
	if err != nil {
		return nil, err
	}
	g.waves = waves
	return g, nil
}

// parseInputs splits each mapping value on the first dot. Input fields are
// sorted into a stable order so routing and cache keys are reproducible.
func parseInputs(n NodeSpec) []InputRef {
	if len(n.Inputs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(n.Inputs))
	for f := range n.Inputs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	refs := make([]InputRef, 0, len(fields))
	for _, f := range fields {
		producer, output, _ := strings.Cut(n.Inputs[f], ".")
		refs = append(refs, InputRef{Field: f, Producer: producer, Output: output})
	}
	return refs
}

// Nodes returns the node declarations in declaration order.
func (g *Graph) Nodes() []NodeSpec { return g.nodes }

// Node returns the declaration for id.
func (g *Graph) Node(id string) (NodeSpec, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Inputs returns the parsed input mapping of a node.
func (g *Graph) Inputs(id string) []InputRef { return g.inputs[id] }

// Dependencies returns the direct producers of a node.
func (g *Graph) Dependencies(id string) []string { return g.deps[id] }

// Consumers returns the nodes whose inputs reference id.
func (g *Graph) Consumers(id string) []string { return g.readers[id] }

// Waves returns the resolved execution plan: wave 0 holds all roots, wave
// n+1 holds nodes whose producers all sit in earlier waves. Nodes within a
// wave appear in declaration order, so the plan is deterministic.
func (g *Graph) Waves() [][]string { return g.waves }

// buildWaves runs Kahn's algorithm layer by layer, iterating nodes in
// declaration order at every step.
func (g *Graph) buildWaves() ([][]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		inDegree[n.ID] = len(g.deps[n.ID])
	}

	var waves [][]string
	done := make(map[string]bool, len(g.nodes))
	remaining := len(g.nodes)

	for remaining > 0 {
		var wave []string
		for _, n := range g.nodes {
			if !done[n.ID] && inDegree[n.ID] == 0 {
				wave = append(wave, n.ID)
			}
		}
		if len(wave) == 0 {
			return nil, errors.GraphCycle(g.cyclePath(done))
		}
		for _, id := range wave {
			done[id] = true
			for _, consumer := range g.readers[id] {
				inDegree[consumer]--
			}
		}
		waves = append(waves, wave)
		remaining -= len(wave)
	}
	return waves, nil
}

// cyclePath walks producer edges among the unresolved nodes until one
// repeats, returning the nodes on the offending cycle.
func (g *Graph) cyclePath(done map[string]bool) []string {
	var start string
	for _, n := range g.nodes {
		if !done[n.ID] {
			start = n.ID
			break
		}
	}

	index := make(map[string]int)
	var path []string
	cur := start
	for {
		if at, seen := index[cur]; seen {
			return append(path[at:], cur)
		}
		index[cur] = len(path)
		path = append(path, cur)

		next := ""
		for _, dep := range g.deps[cur] {
			if !done[dep] {
				next = dep
				break
			}
		}
		if next == "" {
			return path
		}
		cur = next
	}
}
