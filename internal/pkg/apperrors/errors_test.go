package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomErrorUnwrap(t *testing.T) {
	err := NewForbiddenError("only the uploader can delete this file")

	assert.True(t, errors.Is(err, ErrPermissionDenied))
	assert.Equal(t, "only the uploader can delete this file", err.Error())

	wrapped := fmt.Errorf("delete resource: %w", err)
	assert.True(t, errors.Is(wrapped, ErrPermissionDenied))
	assert.Equal(t, "only the uploader can delete this file", MessageOf(wrapped, "fallback"))
}

func TestCustomErrorFallsBackToWrappedMessage(t *testing.T) {
	err := &CustomError{Err: ErrUserNotFound}
	assert.Equal(t, "user not found", err.Error())

	assert.Equal(t, "unknown error", (&CustomError{}).Error())
}

func TestIsMatchesAnyOfList(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrTokenRevoked)

	assert.True(t, Is(err, ErrTokenExpired, ErrTokenInvalid, ErrTokenRevoked))
	assert.False(t, Is(err, ErrTokenExpired, ErrTokenInvalid))
}

func TestValidationErrorCarriesField(t *testing.T) {
	err := NewValidationError("subject", "subject is required")

	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.Equal(t, map[string]interface{}{"field": "subject"}, DetailsOf(err))
	assert.Nil(t, DetailsOf(ErrBadRequest))
	assert.Equal(t, "fallback", MessageOf(ErrBadRequest, "fallback"))
}
