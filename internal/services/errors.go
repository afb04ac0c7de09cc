package services

import "fmt"

// ValidationError reports malformed or semantically invalid input.
// Handlers map it to 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for one field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a missing resource. Handlers map it to 404.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError reports a state conflict, like a room taken between the
// availability check and checkout. Handlers map it to 409.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError creates a ConflictError.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// DataAccessError wraps a storage failure. Handlers map it to 500.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// NewDataAccessError wraps a repository error with the failing operation.
func NewDataAccessError(op string, err error) *DataAccessError {
	return &DataAccessError{Op: op, Err: err}
}

// ExternalProviderError wraps a failure from an outside system, like the
// payment gateway. Handlers map it to 502.
type ExternalProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ExternalProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ExternalProviderError) Unwrap() error {
	return e.Err
}

// NewExternalProviderError wraps a provider failure.
func NewExternalProviderError(provider, message string, err error) *ExternalProviderError {
	return &ExternalProviderError{Provider: provider, Message: message, Err: err}
}
