package service

import (
	"errors"
	"fmt"
)

// Sentinel errors used across the pipeline. The HTTP layer maps them to
// status codes with errors.Is instead of matching on message text.
var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when the embedding or completion
	// service call fails; the query cannot proceed without them.
	ErrExternalService = errors.New("external service error")
	// ErrStoreUnavailable is returned when the vector store or the chunk
	// payload store is unreachable.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
