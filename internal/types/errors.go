package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for docupdate operations.
var (
	// ErrMalformedPath indicates a DocPath with broken bracket syntax.
	ErrMalformedPath = errors.New("malformed document path")

	// ErrPathTooDeep indicates a DocPath exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("document path exceeds maximum depth")

	// ErrOperatorMismatch indicates an operator applied to a value of the wrong kind.
	ErrOperatorMismatch = errors.New("operator does not apply to target value")

	// ErrInvalidOperation indicates an operation that cannot be performed at all.
	ErrInvalidOperation = errors.New("invalid update operation")

	// ErrTypeMismatch indicates a numeric operator saw a non-numeric operand or value.
	ErrTypeMismatch = errors.New("value has wrong type for operator")

	// ErrUnknownOperator indicates a $-prefixed key outside the operator set.
	ErrUnknownOperator = errors.New("unknown update operator")

	// ErrArrayTooLong indicates a write would extend an array past MaxArrayExtension.
	ErrArrayTooLong = errors.New("array extension exceeds maximum")

	// ErrDocumentNotFound indicates no stored document has the requested ID.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrVersionConflict indicates a concurrent writer won every retry.
	ErrVersionConflict = errors.New("document version conflict")

	// ErrDocumentTooLarge indicates an encoded document exceeds the size limit.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size")

	// ErrTooManyOperations indicates a batch exceeds MaxBatchOperations.
	ErrTooManyOperations = errors.New("too many operations in batch")
)

// PathError reports a DocPath that could not be parsed.
type PathError struct {
	Path   string
	Pos    int
	Reason string
	Err    error // ErrMalformedPath or ErrPathTooDeep
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q: %s at offset %d", e.Path, e.Reason, e.Pos)
}

func (e *PathError) Unwrap() error { return e.Err }

// OperationError ties a failure to the operator and path that raised it.
type OperationError struct {
	Operator Operator
	Path     string
	Message  string
	Err      error
}

func (e *OperationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Operator, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Operator, e.Path, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// IsValidationError reports whether err was caused by the caller's input
// rather than by storage or transport.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMalformedPath) ||
		errors.Is(err, ErrPathTooDeep) ||
		errors.Is(err, ErrOperatorMismatch) ||
		errors.Is(err, ErrInvalidOperation) ||
		errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrUnknownOperator) ||
		errors.Is(err, ErrArrayTooLong) ||
		errors.Is(err, ErrDocumentTooLarge) ||
		errors.Is(err, ErrTooManyOperations)
}
