package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/swingdesk/swingdesk/errors"
	"github.com/swingdesk/swingdesk/logger"
)

// Registry holds the registered tools. Registration happens once at agent
// initialization; after that the registry is safe for concurrent reads.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
	log   *logger.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		log:   log.WithComponent("tools"),
	}
}

// Register adds a tool. Registering a duplicate name is a configuration
// error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Descriptor.Name
	if name == "" {
		return errors.Validation("tool name is required")
	}
	if _, exists := r.tools[name]; exists {
		return errors.Validation(fmt.Sprintf("tool %q is already registered", name))
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	r.log.Debug("registered tool", logger.Fields(logger.FieldTool, name))
	return nil
}

// Get returns the tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the descriptors of all registered tools in registration
// order, so selection logic sees a stable sequence.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Descriptor)
	}
	return out
}

// Call looks up a tool by name, validates args against its parameter schema,
// applies declared defaults, and invokes the handler. Failures are returned
// as tagged tool errors: unknown tool, invalid arguments, or a wrapped
// execution failure.
func (r *Registry) Call(ctx context.Context, name string, args Args) (any, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, errors.UnknownTool(name)
	}

	prepared, err := prepareArgs(t.Descriptor, args)
	if err != nil {
		return nil, err
	}

	r.log.Debug("calling tool", logger.Fields(logger.FieldTool, name))
	result, err := t.Handler(ctx, prepared)
	if err != nil {
		return nil, errors.ToolExecution(name, err)
	}
	return result, nil
}

// prepareArgs validates args against the schema, collecting every violation,
// and returns a copy with defaults filled in.
func prepareArgs(d Descriptor, args Args) (Args, error) {
	declared := make(map[string]Param, len(d.Params))
	for _, p := range d.Params {
		declared[p.Name] = p
	}

	var violations []string
	for name, v := range args {
		p, ok := declared[name]
		if !ok {
			violations = append(violations, fmt.Sprintf("%s: not a declared parameter", name))
			continue
		}
		if v != nil && !matchesType(v, p.Type) {
			violations = append(violations, fmt.Sprintf("%s: expected %s, got %s", name, p.Type, typeName(v)))
		}
	}

	prepared := make(Args, len(d.Params))
	for _, p := range d.Params {
		if v, ok := args[p.Name]; ok && v != nil {
			prepared[p.Name] = v
			continue
		}
		if p.Required {
			violations = append(violations, fmt.Sprintf("%s: is required", p.Name))
			continue
		}
		if p.Default != nil {
			prepared[p.Name] = p.Default
		}
	}

	if len(violations) > 0 {
		return nil, errors.InvalidToolArgs(d.Name, strings.Join(violations, "; "))
	}
	return prepared, nil
}
