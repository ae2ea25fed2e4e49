package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrTimeout         = errors.New("processing timed out")
	ErrMaintenance     = errors.New("service is under maintenance")
	ErrChannelDisabled = errors.New("whatsapp channel is disabled")
	ErrUnauthorized    = errors.New("unauthorized")
)

// ValidationError rejects input before any entity is created.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound wraps ErrNotFound with the kind and id that was missing.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
