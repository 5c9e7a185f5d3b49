package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidOperation   = errors.New("invalid_operation")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserBanned         = errors.New("user_banned")
	ErrValidation         = errors.New("validation")

	ErrEmailTaken    = fmt.Errorf("email_taken: %w", ErrConflict)
	ErrDuplicateSwap = fmt.Errorf("duplicate_swap: %w", ErrConflict)
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

// InvalidOperationError carries a human readable reason for a rejected
// state change while still matching ErrInvalidOperation.
type InvalidOperationError struct {
	Reason string
}

func (e *InvalidOperationError) Error() string { return "invalid operation: " + e.Reason }

func (e *InvalidOperationError) Unwrap() error { return ErrInvalidOperation }

func NewInvalidOperation(reason string) error {
	return &InvalidOperationError{Reason: reason}
}
