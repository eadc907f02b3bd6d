// Package apperr defines the error taxonomy shared by every domain package.
// Domain packages declare their own sentinels on top of these kinds so the
// HTTP layer can map any error with errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not_found")
	ErrForbidden      = errors.New("forbidden")
	ErrScopeViolation = errors.New("scope_violation")
	ErrDuplicateEntry = errors.New("duplicate_entry")
	ErrConflict       = errors.New("conflict")
	ErrValidation     = errors.New("validation_error")
	ErrUnauthorized   = errors.New("unauthorized")
)

// Coded is a domain sentinel carrying its own snake_case code while
// classifying as one of the taxonomy kinds above.
type Coded struct {
	Code string
	kind error
}

// New declares a domain sentinel of the given kind.
func New(code string, kind error) *Coded {
	return &Coded{Code: code, kind: kind}
}

func (e *Coded) Error() string { return e.Code }

func (e *Coded) Unwrap() error { return e.kind }

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string
}

func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

func (e *NotFoundError) Error() string {
	return e.Resource + "_not_found"
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// FieldError is a validation failure bound to a single request field.
type FieldError struct {
	Field string
	Code  string
}

func Invalid(field, code string) *FieldError {
	return &FieldError{Field: field, Code: code}
}

func (e *FieldError) Error() string {
	return e.Code
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// ScopeViolationError reports a dimension value outside a party's allow-list.
type ScopeViolationError struct {
	Dimension string
	ValueID   string
}

func (e *ScopeViolationError) Error() string {
	return fmt.Sprintf("%s %s is not in scope for this party", e.Dimension, e.ValueID)
}

func (e *ScopeViolationError) Unwrap() error { return ErrScopeViolation }

// Kind returns the taxonomy sentinel err belongs to, or nil when unclassified.
func Kind(err error) error {
	for _, kind := range []error{
		ErrScopeViolation,
		ErrNotFound,
		ErrForbidden,
		ErrDuplicateEntry,
		ErrConflict,
		ErrValidation,
		ErrUnauthorized,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
