// Package errors provides the unified error type used across swingdesk.
// Every failure surfaced by the engine, the tool registry, or an agent is an
// AppError carrying a machine-readable code, so callers can distinguish
// configuration-time errors (fatal) from per-unit errors (recovered).
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Validation ---

// Validation creates a new AppError for invalid agent input. The message
// should list every violated constraint, not just the first.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeValidation, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeValidation, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// --- Graph configuration (fatal, reported before any unit executes) ---

// GraphCycle creates a new AppError for a dependency cycle. The path names
// at least one node on the offending cycle.
func GraphCycle(path []string) *AppError {
	return &AppError{
		Code: ErrCodeGraphCycle, Message: fmt.Sprintf("Dependency graph contains a cycle: %v", path),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"path": path},
	}
}

// UnknownProducer creates a new AppError for an input mapping that references
// a node that does not exist in the graph.
func UnknownProducer(node, producer string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownProducer, Message: fmt.Sprintf("Node %q references unknown producer %q", node, producer),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"node": node, "producer": producer},
	}
}

// DuplicateNode creates a new AppError for a graph declaring the same node
// identifier twice.
func DuplicateNode(node string) *AppError {
	return &AppError{
		Code: ErrCodeDuplicateNode, Message: fmt.Sprintf("Node %q is declared more than once", node),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"node": node},
	}
}

// --- Tools (recovered locally by the adaptive loop) ---

// UnknownTool creates a new AppError for a call to an unregistered tool.
func UnknownTool(name string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownTool, Message: fmt.Sprintf("Tool %q is not registered", name),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"tool": name},
	}
}

// InvalidToolArgs creates a new AppError for tool arguments that violate the
// declared parameter schema.
func InvalidToolArgs(name, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidToolArgs, Message: fmt.Sprintf("Invalid arguments for tool %q: %s", name, reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"tool": name},
	}
}

// ToolExecution creates a new AppError wrapping a tool's underlying failure.
func ToolExecution(name string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeToolExecution, Message: fmt.Sprintf("Tool %q failed", name),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"tool": name}, Cause: cause,
	}
}

// --- Routing / execution ---

// Routing creates a new AppError for an input mapping whose producer has no
// successful output recorded.
func Routing(node, producer string) *AppError {
	return &AppError{
		Code: ErrCodeRouting, Message: fmt.Sprintf("Node %q requires output of %q which is not available", node, producer),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"node": node, "producer": producer},
	}
}

// AgentExecution creates a new AppError for a failure inside an agent's Run.
func AgentExecution(agent string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeAgentExecution, Message: fmt.Sprintf("Agent %q failed", agent),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"agent": agent}, Cause: cause,
	}
}

// Timeout creates a new AppError for a unit invocation that exceeded its
// deadline. Treated identically to a unit failure for propagation.
func Timeout(agent string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("Agent %q timed out", agent),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"agent": agent},
	}
}

// --- Infrastructure ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// Internal creates a new AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// ExternalService creates a new AppError for an error from an external service.
func ExternalService(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}
