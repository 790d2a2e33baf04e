package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Execution errors
const (
	// ErrCodeNodeFailed indicates a node's computation failed and aborted its run.
	ErrCodeNodeFailed ErrorCode = "NODE_FAILED"
	// ErrCodeRunAborted indicates the run was cancelled from outside.
	ErrCodeRunAborted ErrorCode = "RUN_ABORTED"
	// ErrCodeTimeout indicates the run exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Serialization errors
const (
	// ErrCodeInvalidRecord indicates a malformed serialized record.
	ErrCodeInvalidRecord ErrorCode = "INVALID_RECORD"
	// ErrCodeUnknownIdentifier indicates an identifier missing from the registry.
	ErrCodeUnknownIdentifier ErrorCode = "UNKNOWN_IDENTIFIER"
	// ErrCodeNotInvokable indicates the resolved symbol cannot be invoked as requested.
	ErrCodeNotInvokable ErrorCode = "NOT_INVOKABLE"
	// ErrCodeConstructionFailed indicates the resolved symbol returned an error.
	ErrCodeConstructionFailed ErrorCode = "CONSTRUCTION_FAILED"
	// ErrCodeNotSerializable indicates a value has no serialized form.
	ErrCodeNotSerializable ErrorCode = "NOT_SERIALIZABLE"
)

// Request errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates a named pipeline definition does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUnauthorized indicates the request is unauthorized.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Runs are never retried by the runtime; the flag only tells callers whether
// re-invoking from scratch is worth trying.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:    true,
	ErrCodeRunAborted: true,
}

// IsRetryableCode returns true if re-invoking the run may succeed.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
