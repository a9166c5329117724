// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package auth_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/drgz/accounts/internal/auth"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want auth.Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: auth.KindInternal},
		{name: "unknown code", err: oops.Code("SOMETHING_ELSE").Errorf("x"), want: auth.KindInternal},
		{name: "validation", err: oops.Code(auth.CodeEmailInvalid).Errorf("x"), want: auth.KindValidation},
		{name: "conflict", err: oops.Code(auth.CodeUsernameAlreadyExists).Errorf("x"), want: auth.KindConflict},
		{name: "not found", err: oops.Code(auth.CodeAccountNotFound).Wrap(auth.ErrNotFound), want: auth.KindNotFound},
		{name: "credentials", err: oops.Code(auth.CodeInvalidCredentials).Errorf("x"), want: auth.KindInvalidCredentials},
		{name: "unverified", err: oops.Code(auth.CodeEmailNotVerified).Errorf("x"), want: auth.KindUnverified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.KindOf(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	t.Run("internal errors are masked", func(t *testing.T) {
		err := oops.Code("LOGIN_FAILED").Wrap(errors.New("FATAL: password authentication failed for user \"postgres\""))
		assert.Equal(t, "internal error", auth.PublicMessage(err))
	})

	t.Run("known codes use their fixed text", func(t *testing.T) {
		assert.Equal(t, "Password is too short", auth.PublicMessage(oops.Code(auth.CodePasswordTooShort).Errorf("anything")))
		assert.Equal(t, "Email not verified", auth.PublicMessage(oops.Code(auth.CodeEmailNotVerified).Errorf("anything")))
	})
}
