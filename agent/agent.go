// Package agent defines the contract every execution unit implements and
// the Execute wrapper that turns any failure into a tagged outcome instead
// of letting it escape the engine.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/swingdesk/swingdesk/errors"
)

// Input is the structured input routed to an agent by the engine.
type Input map[string]any

// Output is the structured output an agent produces. Downstream agents
// receive fields of it (or all of it) per their input mappings.
type Output map[string]any

// Agent is the uniform contract for one execution unit in the graph.
//
// Validate must report every violated constraint, not just the first.
// Run must be deterministic with respect to the engine: the same input must
// be capable of producing a cache hit. It may perform outbound calls but
// must not mutate engine-owned state.
type Agent interface {
	Name() string
	Validate(input Input) error
	Run(ctx context.Context, input Input) (Output, error)
}

// Factory constructs an agent from its static node configuration. Every
// agent type is constructed through exactly this signature.
type Factory func(config map[string]any) (Agent, error)

// Status is the terminal status of one agent invocation.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome is the tagged result of Execute.
type Outcome struct {
	Agent     string           `json:"agent"`
	Status    Status           `json:"status"`
	Output    Output           `json:"output,omitempty"`
	ErrorKind errors.ErrorCode `json:"error_kind,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Execute orchestrates validate → run, converting any failure from either
// stage (including panics) into a failed Outcome.
func Execute(ctx context.Context, a Agent, input Input) (out Outcome) {
	out = Outcome{Agent: a.Name(), Timestamp: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusFailed
			out.ErrorKind = errors.ErrCodeAgentExecution
			out.Error = fmt.Sprintf("panic: %v", r)
			out.Output = nil
		}
	}()

	if err := a.Validate(input); err != nil {
		out.Status = StatusFailed
		out.ErrorKind = errors.CodeOf(err)
		out.Error = err.Error()
		return out
	}

	output, err := a.Run(ctx, input)
	if err != nil {
		out.Status = StatusFailed
		out.ErrorKind = errors.CodeOf(wrapRunError(a.Name(), err))
		out.Error = err.Error()
		return out
	}

	out.Status = StatusSucceeded
	out.Output = output
	return out
}

// wrapRunError preserves tagged errors and classifies everything else as an
// agent execution failure.
func wrapRunError(name string, err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.AgentExecution(name, err)
}

// Decode converts a routed Input into a typed schema struct via JSON.
func Decode(input Input, target any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("agent: encode input: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("agent: decode input: %w", err)
	}
	return nil
}

// Encode converts a typed schema struct into an Output map via JSON, so the
// engine's input router can extract fields by name.
func Encode(v any) (Output, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("agent: encode output: %w", err)
	}
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("agent: decode output: %w", err)
	}
	return out, nil
}
