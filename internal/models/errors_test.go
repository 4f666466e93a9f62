package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := NewInternalError(cause)

	assert.Equal(t, "Internal server error: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Content is required", NewValidationError("Content is required").Error())
}

func TestHasCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"validation", NewValidationError("bad"), CodeValidation, true},
		{"wrapped unauthorized", fmt.Errorf("login: %w", NewUnauthorizedError("nope")), CodeUnauthorized, true},
		{"wrong code", NewNotFoundError("Post", 7), CodeValidation, false},
		{"plain error", errors.New("boom"), CodeInternal, false},
		{"nil", nil, CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCode(tt.err, tt.code))
		})
	}
}
