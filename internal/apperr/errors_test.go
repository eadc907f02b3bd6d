package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindClassifiesWrappedErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "not found", err: NotFound("vendor"), want: ErrNotFound},
		{name: "field", err: Invalid("price_per_unit", "invalid_price_per_unit"), want: ErrValidation},
		{name: "scope", err: &ScopeViolationError{Dimension: "service", ValueID: "1"}, want: ErrScopeViolation},
		{name: "wrapped duplicate", err: fmt.Errorf("insert: %w", ErrDuplicateEntry), want: ErrDuplicateEntry},
		{name: "coded", err: New("scope_in_use", ErrConflict), want: ErrConflict},
		{name: "unknown", err: errors.New("boom"), want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Kind(tc.err))
		})
	}
}

func TestScopeViolationErrorAs(t *testing.T) {
	err := fmt.Errorf("create: %w", &ScopeViolationError{Dimension: "language_pair", ValueID: "42"})

	var scopeErr *ScopeViolationError
	assert.True(t, errors.As(err, &scopeErr))
	assert.Equal(t, "language_pair", scopeErr.Dimension)
	assert.Contains(t, err.Error(), "language_pair 42")
}
