package response

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ems-portal/internal/models"
)

func TestValidationError_SignupForm(t *testing.T) {
	form := models.SignupForm{
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "not-an-email",
		Username:        "jd",
		Password:        "password123",
		ConfirmPassword: "password124",
		Certification:   "Paramedic",
		AgreeToTerms:    true,
	}

	err := validator.New().Struct(form)
	require.Error(t, err)
	resp := ValidationError(err.(validator.ValidationErrors))

	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Email must be a valid email address")
	assert.Contains(t, resp.Error, "field Username must be at least 3 characters")
	assert.Contains(t, resp.Error, "field ConfirmPassword must match Password")
	assert.Contains(t, resp.Error, "field Certification must be one of: EMT-B AEMT EMTI EMTP CCPC/FPC")
}

func TestValidationError_RequiredTerms(t *testing.T) {
	form := models.SignupForm{
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane@example.com",
		Username:        "jane",
		Password:        "password123",
		ConfirmPassword: "password123",
		Certification:   "EMTP",
	}

	err := validator.New().Struct(form)
	require.Error(t, err)
	msgs := ValidationMessages(err.(validator.ValidationErrors))

	assert.Equal(t, []string{"field AgreeToTerms is a required field"}, msgs)
}

func TestStatusOKWithDataAndError(t *testing.T) {
	ok := StatusOKWithData(map[string]int{"n": 1})
	assert.Equal(t, StatusOK, ok.Status)
	assert.Equal(t, map[string]int{"n": 1}, ok.Data)

	e := Error("boom")
	assert.Equal(t, ErrorResponse{Status: StatusError, Error: "boom"}, e)
}
