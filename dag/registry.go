package dag

import (
	"fmt"
	"sort"
	"sync"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/errors"
)

// Registry maps node type names to agent factories. Factories are registered
// at startup; instantiation happens per graph so each node gets its own agent
// built from its static config.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]agent.Factory
}

// NewRegistry creates an empty factory registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]agent.Factory)}
}

// Register adds a factory under a type name. Registering a duplicate type is
// a configuration error.
func (r *Registry) Register(typeName string, f agent.Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if typeName == "" {
		return errors.Validation("agent type name is required")
	}
	if _, exists := r.factories[typeName]; exists {
		return errors.Validation(fmt.Sprintf("agent type %q is already registered", typeName))
	}
	r.factories[typeName] = f
	return nil
}

// MustRegister registers a factory and panics on error. For wiring in main.
func (r *Registry) MustRegister(typeName string, f agent.Factory) {
	if err := r.Register(typeName, f); err != nil {
		panic(err)
	}
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build instantiates one agent per graph node. An unknown type or a factory
// failure is a configuration error reported before execution starts.
func (r *Registry) Build(g *Graph) (map[string]agent.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make(map[string]agent.Agent, len(g.Nodes()))
	for _, n := range g.Nodes() {
		f, ok := r.factories[n.Type]
		if !ok {
			return nil, errors.Validation(fmt.Sprintf("node %q references unknown agent type %q", n.ID, n.Type))
		}
		a, err := f(n.Config)
		if err != nil {
			return nil, errors.Validation(fmt.Sprintf("node %q: constructing agent type %q: %v", n.ID, n.Type, err))
		}
		agents[n.ID] = a
	}
	return agents, nil
}
