package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestFieldScopesMessage(t *testing.T) {
	appErr := Field("class_code", "Invalid class code.")
	assert.Equal(t, ErrValidation.Code, appErr.Code)
	assert.Equal(t, "Invalid class code.", appErr.Message)
	assert.Equal(t, map[string]string{"class_code": "Invalid class code."}, appErr.Fields)
	assert.Nil(t, ErrValidation.Fields)
	assert.True(t, errors.Is(appErr, ErrValidation))
}

func TestFromValidation(t *testing.T) {
	type payload struct {
		FullName string `json:"full_name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Capacity int    `json:"capacity" validate:"gt=0"`
	}

	v := validator.New()
	err := v.Struct(payload{Email: "not-an-email"})
	require.Error(t, err)

	appErr := FromValidation(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "This field is required.", appErr.Fields["full_name"])
	assert.Equal(t, "Enter a valid email address.", appErr.Fields["email"])
	assert.Equal(t, "Must be greater than 0.", appErr.Fields["capacity"])
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "classroom_id", toSnake("ClassroomID"))
	assert.Equal(t, "starts_at", toSnake("StartsAt"))
	assert.Equal(t, "url", toSnake("URL"))
	assert.Equal(t, "playback_url", toSnake("PlaybackURL"))
}
