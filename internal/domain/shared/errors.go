// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
// Domain packages define their own specific sentinels (user.ErrUserNotFound,
// lesson.ErrLessonNotFound) on top of these.
var (
	ErrNotFound         = errors.New("entity not found")
	ErrValidation       = errors.New("validation error")
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError carries a field name alongside the validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Is makes ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a field-level validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
