// Package tools provides a name-addressable registry of data-fetching
// strategies with declared parameter schemas. Agents that collect data
// adaptively select among registered tools at runtime; the registry
// validates arguments against each tool's schema before invoking it.
package tools

import (
	"context"
	"fmt"
)

// ParamType enumerates the supported parameter types.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
	TypeBool   ParamType = "bool"
)

// Param declares one parameter of a tool's schema.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
}

// Descriptor describes a registered tool: its unique name, a description
// used by selection logic, and its parameter schema.
type Descriptor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

// Handler is the executable strategy behind a tool.
type Handler func(ctx context.Context, args Args) (any, error)

// Tool pairs a descriptor with its handler. Unavailable marks a tool that is
// declared but not usable (missing credential, not implemented); selection
// logic skips it with a logged degradation instead of treating it as failure.
type Tool struct {
	Descriptor  Descriptor
	Handler     Handler
	Unavailable bool
}

// Args holds the (already validated) arguments passed to a handler.
type Args map[string]any

// String returns the string argument by name, or empty string if absent.
func (a Args) String(name string) string {
	if v, ok := a[name].(string); ok {
		return v
	}
	return ""
}

// Int returns the integer argument by name, or 0 if absent. JSON-decoded
// numbers arrive as float64 and are converted.
func (a Args) Int(name string) int {
	switch v := a[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the float argument by name, or 0 if absent.
func (a Args) Float(name string) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns the boolean argument by name, or false if absent.
func (a Args) Bool(name string) bool {
	if v, ok := a[name].(bool); ok {
		return v
	}
	return false
}

func matchesType(v any, t ParamType) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInt:
		switch n := v.(type) {
		case int, int64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case TypeFloat:
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case TypeBool:
		_, ok := v.(bool)
		return ok
	}
	return false
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
