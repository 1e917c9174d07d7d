package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration-time errors (fatal, abort the run before any unit executes)
const (
	// ErrCodeGraphCycle indicates the dependency graph contains a cycle.
	ErrCodeGraphCycle ErrorCode = "GRAPH_CYCLE"
	// ErrCodeUnknownProducer indicates an input mapping references a node
	// that does not exist.
	ErrCodeUnknownProducer ErrorCode = "GRAPH_UNKNOWN_PRODUCER"
	// ErrCodeDuplicateNode indicates a node identifier is declared twice.
	ErrCodeDuplicateNode ErrorCode = "GRAPH_DUPLICATE_NODE"
)

// Per-unit errors (recovered at the engine boundary)
const (
	// ErrCodeValidation indicates agent input failed schema validation.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeRouting indicates a required producer output was unavailable.
	ErrCodeRouting ErrorCode = "ROUTING_ERROR"
	// ErrCodeAgentExecution indicates a failure inside an agent's Run.
	ErrCodeAgentExecution ErrorCode = "AGENT_EXECUTION_ERROR"
	// ErrCodeTimeout indicates a unit invocation exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Tool errors (recovered locally by the adaptive loop)
const (
	// ErrCodeUnknownTool indicates a call to an unregistered tool.
	ErrCodeUnknownTool ErrorCode = "TOOL_UNKNOWN"
	// ErrCodeInvalidToolArgs indicates tool arguments violated the schema.
	ErrCodeInvalidToolArgs ErrorCode = "TOOL_INVALID_ARGS"
	// ErrCodeToolExecution indicates the underlying fetch failed.
	ErrCodeToolExecution ErrorCode = "TOOL_EXECUTION_FAILED"
)

// Infrastructure errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:         true,
	ErrCodeToolExecution:   true,
	ErrCodeExternalService: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
