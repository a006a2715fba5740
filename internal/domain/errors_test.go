package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrValidation,
		ErrParse,
		ErrForbidden,
		ErrUnavailable,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b,
					"sentinels should be distinct: %v vs %v", a, b)
			}
		}
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name        string
		entity      string
		key         string
		expectedMsg string
	}{
		{
			name:        "with entity and key",
			entity:      "slot",
			key:         "quotes",
			expectedMsg: `slot "quotes" not found`,
		},
		{
			name:        "with entity only",
			entity:      "session",
			key:         "",
			expectedMsg: "session not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNotFoundError(tt.entity, tt.key)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrNotFound)
			assert.True(t, IsNotFound(err))

			var notFound *NotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, tt.entity, notFound.Entity)
			assert.Equal(t, tt.key, notFound.Key)
		})
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		message     string
		expectedMsg string
	}{
		{
			name:        "with field",
			field:       "text",
			message:     "must not be empty",
			expectedMsg: "validation failed for text: must not be empty",
		},
		{
			name:        "without field",
			field:       "",
			message:     "bad input",
			expectedMsg: "validation failed: bad input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			assert.Equal(t, tt.expectedMsg, err.Error())
			assert.True(t, IsValidation(err))

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestParseError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")

	t.Run("with cause", func(t *testing.T) {
		err := NewParseError("import", "not a JSON array", cause)

		assert.Equal(t, "import payload invalid: not a JSON array: unexpected end of JSON input", err.Error())
		assert.True(t, IsParse(err))
		require.ErrorIs(t, err, cause)
	})

	t.Run("without cause", func(t *testing.T) {
		err := NewParseError("remote", "top-level value is not an array", nil)

		assert.Equal(t, "remote payload invalid: top-level value is not an array", err.Error())
		assert.True(t, IsParse(err))
		assert.False(t, IsValidation(err))
	})
}

func TestForbiddenError(t *testing.T) {
	err := NewForbiddenError("import", "role editor required")
	assert.Equal(t, `operation "import" forbidden: role editor required`, err.Error())
	assert.True(t, IsForbidden(err))

	bare := NewForbiddenError("sync", "")
	assert.Equal(t, `operation "sync" forbidden`, bare.Error())
}

func TestUnavailableError(t *testing.T) {
	err := NewUnavailableError("remote-quotes", "connection refused")
	assert.Equal(t, `service "remote-quotes" unavailable: connection refused`, err.Error())
	assert.True(t, IsUnavailable(err))

	bare := NewUnavailableError("storage", "")
	assert.Equal(t, `service "storage" unavailable`, bare.Error())
}

func TestIsHelpers_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("appending quote: %w", NewValidationError("category", "must not be empty"))

	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.False(t, IsUnavailable(wrapped))
	assert.False(t, IsParse(wrapped))
	assert.False(t, IsForbidden(wrapped))
}
