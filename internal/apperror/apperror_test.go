package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vasiliy-maslov/procurement-service/internal/apperror"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected apperror.Kind
	}{
		{
			name:     "not_found",
			err:      apperror.NotFound("Order", "42"),
			expected: apperror.KindNotFound,
		},
		{
			name:     "conflict",
			err:      apperror.Conflictf("already exists"),
			expected: apperror.KindConflict,
		},
		{
			name:     "validation",
			err:      apperror.Validationf("bad input"),
			expected: apperror.KindValidation,
		},
		{
			name:     "wrapped_is_unwrapped",
			err:      fmt.Errorf("service: %w", apperror.Validationf("bad input")),
			expected: apperror.KindValidation,
		},
		{
			name:     "plain_error_is_internal",
			err:      errors.New("boom"),
			expected: apperror.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apperror.KindOf(tt.err))
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	err := apperror.NotFound("Supplier", "550e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, "Supplier '550e8400-e29b-41d4-a716-446655440000' not found", err.Error())
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}
