package graph

import (
	"errors"
	"fmt"
)

// Kind classifies a graph error.
type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindNotFound   Kind = "NOT_FOUND"
	KindNoPath     Kind = "NO_PATH"
	KindConflict   Kind = "CONFLICT"
	KindStorage    Kind = "STORAGE"
)

// Error is the typed outcome of every fallible graph operation.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNoPath) works
// for every no-path outcome regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// ErrNoPath is returned when the graph has no route between two existing nodes.
var ErrNoPath = &Error{Kind: KindNoPath}

// NewValidationError creates a validation error.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewValidationErrorf creates a validation error with a formatted message.
func NewValidationErrorf(format string, args ...any) *Error {
	return NewValidationError(fmt.Sprintf(format, args...))
}

// NewNotFoundError reports a node name that does not resolve.
func NewNotFoundError(name string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("node %q not found", name)}
}

// NewConflictError reports a duplicate node name.
func NewConflictError(name string) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf("node %q already exists", name)}
}

// NewNoPathError reports that end is unreachable from start.
func NewNoPathError(start, end string) *Error {
	return &Error{Kind: KindNoPath, Message: fmt.Sprintf("no path from %q to %q", start, end)}
}

// NewStorageError wraps a persistence failure.
func NewStorageError(operation string, err error) *Error {
	return &Error{
		Kind:    KindStorage,
		Message: fmt.Sprintf("storage operation %q failed", operation),
		Cause:   err,
	}
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	gErr, ok := AsError(err)
	return ok && gErr.Kind == kind
}

func IsValidation(err error) bool { return IsKind(err, KindValidation) }
func IsNotFound(err error) bool   { return IsKind(err, KindNotFound) }
func IsNoPath(err error) bool     { return IsKind(err, KindNoPath) }
func IsConflict(err error) bool   { return IsKind(err, KindConflict) }
func IsStorage(err error) bool    { return IsKind(err, KindStorage) }
