// Package errors provides standardized error handling for the plugin
// runtime.
//
// This package implements a consistent error taxonomy across every
// component (C1-C8):
//   - Kind: machine-readable error classification
//   - Message: human-readable error message
//   - Details: optional additional context (wrapped errors)
//   - StatusCode: HTTP status code an external REST collaborator would use
//     to surface this error, even though the plugin runtime itself exposes
//     no HTTP endpoints
//
// Error Kinds (see Kind* constants below):
//   - NotFound: referenced plugin, version, or repository entry does not
//     exist
//   - Conflict: operation is invalid for the current lifecycle state
//   - Invalid: malformed input (manifest, submission, configuration)
//   - Unauthorized: permission or token check failed
//   - IntegrityFailed: checksum mismatch, or a download over the size cap
//   - NetworkError: a remote fetch or repository call failed
//   - SecurityViolation: SSRF guard or static screen rejected an artifact
//   - LifecycleFailed: a plugin's own start/stop/bootstrap hook returned
//     an error
//   - Timeout: an operation exceeded its deadline
//   - Internal: anything else
//
// Usage patterns:
//
//	// Simple error
//	return errors.NotFound("plugin")
//
//	// Error with custom message
//	return errors.Conflict("plugin is already active")
//
//	// Wrap underlying error
//	return errors.Wrap(errors.KindNetworkError, "fetch failed", err)
package errors

import (
	"fmt"
	"net/http"
)

// Kind is a machine-readable classification of a plugin runtime error.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindInvalid           Kind = "INVALID"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindIntegrityFailed   Kind = "INTEGRITY_FAILED"
	KindNetworkError      Kind = "NETWORK_ERROR"
	KindSecurityViolation Kind = "SECURITY_VIOLATION"
	KindLifecycleFailed   Kind = "LIFECYCLE_FAILED"
	KindTimeout           Kind = "TIMEOUT"
	KindInternal          Kind = "INTERNAL"
)

// AppError represents a standardized plugin runtime error.
type AppError struct {
	// Kind classifies the error for programmatic handling by callers
	// (including the gRPC surface, which maps it onto success=false
	// responses rather than propagating it as a transport fault).
	Kind Kind `json:"kind"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Details provides additional context for debugging (optional).
	Details string `json:"details,omitempty"`

	// StatusCode is the HTTP status an external REST collaborator would
	// use to surface this error. Not part of the plugin runtime's own
	// surface, which is gRPC, but kept so a future REST façade can reuse
	// the same error values without re-deriving a mapping.
	StatusCode int `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates a new AppError of the given kind.
func New(kind Kind, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCodeForKind(kind),
	}
}

// NewWithDetails creates a new AppError with details attached.
func NewWithDetails(kind Kind, message, details string) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		Details:    details,
		StatusCode: statusCodeForKind(kind),
	}
}

// Wrap wraps an existing error as an AppError of the given kind.
func Wrap(kind Kind, message string, err error) *AppError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewWithDetails(kind, message, details)
}

func statusCodeForKind(kind Kind) int {
	switch kind {
	case KindInvalid:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNetworkError:
		return http.StatusBadGateway
	case KindIntegrityFailed, KindSecurityViolation:
		return http.StatusUnprocessableEntity
	case KindLifecycleFailed, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether err is an *AppError of kind k.
func Is(err error, k Kind) bool {
	ae, ok := err.(*AppError)
	return ok && ae.Kind == k
}

// Common constructors for convenience, one per component that needs them.

func NotFound(resource string) *AppError {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource))
}

func Conflict(message string) *AppError {
	return New(KindConflict, message)
}

func Invalid(message string) *AppError {
	return New(KindInvalid, message)
}

func Unauthorized(message string) *AppError {
	return New(KindUnauthorized, message)
}

func IntegrityFailed(message string) *AppError {
	return New(KindIntegrityFailed, message)
}

func NetworkError(err error) *AppError {
	return Wrap(KindNetworkError, "network operation failed", err)
}

func SecurityViolation(message string) *AppError {
	return New(KindSecurityViolation, message)
}

func LifecycleFailed(pluginID, phase string, err error) *AppError {
	return Wrap(KindLifecycleFailed, fmt.Sprintf("plugin %s failed during %s", pluginID, phase), err)
}

func Timeout(operation string) *AppError {
	return New(KindTimeout, fmt.Sprintf("%s timed out", operation))
}

func Internal(err error) *AppError {
	return Wrap(KindInternal, "internal error", err)
}
