// Package domain contains business logic types and errors.
// Domain errors represent business-level failures, NOT HTTP errors.
// They are infrastructure-agnostic and can be mapped to HTTP/CLI output by adapters.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the remote rejected a write because of existing state.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates business rule validation failed.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable indicates a required dependency is unavailable.
	ErrUnavailable = errors.New("unavailable")

	// ErrPersistenceDecode indicates a persisted snapshot could not be parsed.
	ErrPersistenceDecode = errors.New("persisted snapshot malformed")

	// ErrRemoteFetch indicates the remote collection could not be read.
	ErrRemoteFetch = errors.New("remote fetch failed")

	// ErrRemotePost indicates a quote could not be sent to the remote collection.
	ErrRemotePost = errors.New("remote post failed")
)

// NotFoundError provides context for not found errors.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error with context.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError provides context for conflict errors.
type ConflictError struct {
	Entity string
	Reason string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// NewConflictError creates a conflict error with context.
func NewConflictError(entity, reason string) error {
	return &ConflictError{Entity: entity, Reason: reason}
}

// ValidationError provides context for validation errors.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error with context.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a validation error including the invalid value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError provides context for unavailable errors.
type UnavailableError struct {
	Service string
	Reason  string
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// NewUnavailableError creates an unavailable error with context.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// PersistenceDecodeError reports a stored value that exists but cannot be parsed.
// Callers recover by falling back to defaults.
type PersistenceDecodeError struct {
	Key   string
	Cause error
}

// Error implements the error interface.
func (e *PersistenceDecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decoding persisted %q: %v", e.Key, e.Cause)
	}

	return fmt.Sprintf("decoding persisted %q", e.Key)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *PersistenceDecodeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrPersistenceDecode}
	}

	return []error{ErrPersistenceDecode, e.Cause}
}

// NewPersistenceDecodeError creates a decode error for the given storage key.
func NewPersistenceDecodeError(key string, cause error) error {
	return &PersistenceDecodeError{Key: key, Cause: cause}
}

// RemoteOp names the remote operation that failed.
type RemoteOp string

const (
	// RemoteOpFetch is a read of the remote collection.
	RemoteOpFetch RemoteOp = "fetch"

	// RemoteOpPost is a write of a single quote to the remote collection.
	RemoteOpPost RemoteOp = "post"
)

// RemoteError wraps a failure talking to the remote quote collection.
type RemoteError struct {
	Op      RemoteOp
	Service string
	Cause   error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Cause)
}

// Unwrap exposes the op sentinel and the underlying cause.
func (e *RemoteError) Unwrap() []error {
	sentinel := ErrRemoteFetch
	if e.Op == RemoteOpPost {
		sentinel = ErrRemotePost
	}

	if e.Cause == nil {
		return []error{sentinel}
	}

	return []error{sentinel, e.Cause}
}

// NewRemoteFetchError wraps cause as a failed fetch from service.
func NewRemoteFetchError(service string, cause error) error {
	return &RemoteError{Op: RemoteOpFetch, Service: service, Cause: cause}
}

// NewRemotePostError wraps cause as a failed post to service.
func NewRemotePostError(service string, cause error) error {
	return &RemoteError{Op: RemoteOpPost, Service: service, Cause: cause}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnavailable checks if an error is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsPersistenceDecode checks if an error is a persisted-snapshot decode error.
func IsPersistenceDecode(err error) bool {
	return errors.Is(err, ErrPersistenceDecode)
}

// IsRemoteFetch checks if an error is a failed remote fetch.
func IsRemoteFetch(err error) bool {
	return errors.Is(err, ErrRemoteFetch)
}

// IsRemotePost checks if an error is a failed remote post.
func IsRemotePost(err error) bool {
	return errors.Is(err, ErrRemotePost)
}
