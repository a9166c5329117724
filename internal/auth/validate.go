// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package auth

import (
	"context"
	"errors"
	"regexp"
	"unicode"

	"github.com/samber/oops"
)

// Validation error codes, returned as the oops code of a validation failure.
const (
	CodePasswordsDoNotMatch   = "passwords_do_not_match"
	CodePasswordTooShort      = "password_too_short"
	CodePasswordTooWeak       = "password_too_weak"
	CodeEmailTooShort         = "email_too_short"
	CodeEmailInvalid          = "email_invalid"
	CodeEmailAlreadyExists    = "email_already_exists"
	CodeUsernameTooShort      = "username_too_short"
	CodeUsernameAlreadyExists = "username_already_exists"
)

// Length constraints, in bytes.
const (
	MinPasswordLength = 5
	MinEmailLength    = 5
	MinUsernameLength = 3
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// fieldError builds a validation failure for field.
func fieldError(code, field string) error {
	return oops.Code(code).
		In("validation").
		With("field", field).
		Errorf("%s", codes[code].message)
}

// ValidationField returns the input field a validation error refers to.
func ValidationField(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	field, _ := oopsErr.Context()["field"].(string)
	return field
}

// ValidateRegistration checks a registration payload. Checks run in a fixed
// order and the first failure is returned. The email and username uniqueness
// checks consult lookup; any lookup failure other than ErrNotFound is returned
// as an internal error.
func ValidateRegistration(ctx context.Context, in RegisterInput, lookup AccountLookup) error {
	if err := validatePassword(in.Password1, in.Password2); err != nil {
		return err
	}

	if len(in.Email) < MinEmailLength {
		return fieldError(CodeEmailTooShort, "email")
	}
	if !emailRegex.MatchString(in.Email) {
		return fieldError(CodeEmailInvalid, "email")
	}

	taken, err := exists(func() (*Account, error) { return lookup.FindByEmail(ctx, in.Email) })
	if err != nil {
		return oops.Code("VALIDATION_LOOKUP_FAILED").
			With("operation", "find by email").
			Wrap(err)
	}
	if taken {
		return fieldError(CodeEmailAlreadyExists, "email")
	}

	if len(in.Username) < MinUsernameLength {
		return fieldError(CodeUsernameTooShort, "username")
	}

	taken, err = exists(func() (*Account, error) { return lookup.FindByUsername(ctx, in.Username) })
	if err != nil {
		return oops.Code("VALIDATION_LOOKUP_FAILED").
			With("operation", "find by username").
			Wrap(err)
	}
	if taken {
		return fieldError(CodeUsernameAlreadyExists, "username")
	}

	return nil
}

// ValidatePasswordChange checks a password change payload without touching storage.
func ValidatePasswordChange(in ChangePasswordInput) error {
	return validatePassword(in.Password1, in.Password2)
}

func validatePassword(password1, password2 string) error {
	if password1 != password2 {
		return fieldError(CodePasswordsDoNotMatch, "password2")
	}
	if len(password1) < MinPasswordLength {
		return fieldError(CodePasswordTooShort, "password1")
	}
	if !isStrongPassword(password1) {
		return fieldError(CodePasswordTooWeak, "password1")
	}
	return nil
}

// isStrongPassword requires at least one ASCII letter and one digit.
func isStrongPassword(password string) bool {
	var letter, digit bool
	for _, r := range password {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

func exists(find func() (*Account, error)) (bool, error) {
	_, err := find()
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
