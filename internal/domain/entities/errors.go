package entities

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrValidation         = errors.New("validation failed")
	ErrUsernameTaken      = fmt.Errorf("%w: username already taken", ErrValidation)
	ErrInvalidReference   = fmt.Errorf("%w: referenced category or tag does not exist", ErrValidation)
	ErrUnsupportedType    = fmt.Errorf("%w: unsupported file type, only JPG and PNG are allowed", ErrValidation)
	ErrFileTooLarge       = fmt.Errorf("%w: file too large", ErrValidation)
	ErrNoFile             = fmt.Errorf("%w: no file uploaded", ErrValidation)
	ErrMissingCredentials = fmt.Errorf("%w: username and password are required", ErrValidation)

	ErrUnauthenticated    = errors.New("authentication required")
	ErrTokenMissing       = fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	ErrTokenInvalid       = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrUnauthenticated)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)

	ErrPermissionDenied = errors.New("permission denied")

	ErrNotFound           = errors.New("not found")
	ErrTaskNotFound       = fmt.Errorf("task %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrAttachmentNotFound = fmt.Errorf("attachment %w", ErrNotFound)

	ErrUploadFailed = errors.New("image upload failed")

	ErrDuplicate = errors.New("duplicate key")
)

// FieldError describes one invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field errors detected before any mutation.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns nil when no field errors were collected, so callers can
// return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
