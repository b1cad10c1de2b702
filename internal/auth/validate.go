// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// RegisterInput carries the fields submitted for registration.
type RegisterInput struct {
	FirstName string `json:"firstName" validate:"min=2"`
	LastName  string `json:"lastName" validate:"min=2"`
	Email     string `json:"email" validate:"email"`
	Password  string `json:"password" validate:"min=8"`
}

// LoginInput carries the fields submitted for login.
type LoginInput struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"min=8"`
}

// Validate checks every field and reports all violations at once.
func (in RegisterInput) Validate() error {
	return validateStruct(in)
}

// Validate checks every field and reports all violations at once.
func (in LoginInput) Validate() error {
	return validateStruct(in)
}

var fieldMessages = map[string]string{
	"firstName": "First name must be at least 2 characters long",
	"lastName":  "Last name must be at least 2 characters long",
	"email":     "Invalid email format",
	"password":  "Password must be at least 8 characters long",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validateStruct returns nil or a *ValidationError. Field order follows
// struct declaration order.
func validateStruct(in any) error {
	err := validatorInstance().Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = "Invalid value"
		}
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}
