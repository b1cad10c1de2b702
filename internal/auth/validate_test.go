// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authd/internal/auth"
)

func fieldErrors(t *testing.T, err error) []auth.FieldError {
	t.Helper()
	var verr *auth.ValidationError
	require.True(t, errors.As(err, &verr), "expected *auth.ValidationError, got %T", err)
	return verr.Fields
}

func TestRegisterInput_Validate(t *testing.T) {
	valid := auth.RegisterInput{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     "ann@x.io",
		Password:  "hunter22",
	}

	t.Run("accepts valid input", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("reports every violation in field order", func(t *testing.T) {
		err := auth.RegisterInput{
			FirstName: "A",
			LastName:  "",
			Email:     "not-an-email",
			Password:  "short",
		}.Validate()

		assert.Equal(t, []auth.FieldError{
			{Field: "firstName", Message: "First name must be at least 2 characters long"},
			{Field: "lastName", Message: "Last name must be at least 2 characters long"},
			{Field: "email", Message: "Invalid email format"},
			{Field: "password", Message: "Password must be at least 8 characters long"},
		}, fieldErrors(t, err))
	})

	t.Run("reports a single violation", func(t *testing.T) {
		in := valid
		in.Email = "ann"
		assert.Equal(t, []auth.FieldError{
			{Field: "email", Message: "Invalid email format"},
		}, fieldErrors(t, in.Validate()))
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		in := valid
		in.FirstName = "Ló"
		assert.NoError(t, in.Validate())
	})

	t.Run("password of exactly eight characters passes", func(t *testing.T) {
		in := valid
		in.Password = "12345678"
		assert.NoError(t, in.Validate())
	})
}

func TestLoginInput_Validate(t *testing.T) {
	assert.NoError(t, auth.LoginInput{Email: "ann@x.io", Password: "hunter22"}.Validate())

	err := auth.LoginInput{Email: "", Password: "1234567"}.Validate()
	assert.Equal(t, []auth.FieldError{
		{Field: "email", Message: "Invalid email format"},
		{Field: "password", Message: "Password must be at least 8 characters long"},
	}, fieldErrors(t, err))
}

func TestValidationError_Error(t *testing.T) {
	err := &auth.ValidationError{Fields: []auth.FieldError{
		{Field: "email", Message: "Invalid email format"},
	}}
	assert.Equal(t, "validation failed: email: Invalid email format", err.Error())
}
