package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_BuildsErrorWithoutCause(t *testing.T) {
	err := New(InvalidArgument, "title is required", false)

	assert.Equal(t, InvalidArgument, err.Code)
	assert.False(t, err.Retryable)
	assert.Nil(t, err.Cause)
	assert.Equal(t, "INVALID_ARGUMENT: title is required", err.Error())
}

func TestWrap_IncludesCauseInMessageAndUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(StoreUnavailable, "failed to persist notification", true, cause)

	assert.True(t, err.Retryable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRecipientMissingErr_IsRetryableAndNamesChannel(t *testing.T) {
	err := RecipientMissingErr("EMAIL")

	assert.Equal(t, RecipientMissing, err.Code)
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Message, "EMAIL")
}

func TestDispatchError_AsMatchesWrappedType(t *testing.T) {
	var wrapped error = New(TemplateRender, "bad template", false)

	var derr *DispatchError
	assert.ErrorAs(t, wrapped, &derr)
	assert.Equal(t, TemplateRender, derr.Code)
}
