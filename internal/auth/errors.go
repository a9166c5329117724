// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Storage adapters return these when a uniqueness constraint rejects a write.
var (
	ErrEmailTaken    = errors.New("email already taken")
	ErrUsernameTaken = errors.New("username already taken")
)

// Kind is the caller-facing error category.
type Kind string

// Error kinds exposed to the transport layer.
const (
	KindValidation         Kind = "validation_error"
	KindConflict           Kind = "conflict"
	KindNotFound           Kind = "not_found"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnverified         Kind = "unverified"
	KindUnauthenticated    Kind = "unauthenticated"
	KindInternal           Kind = "internal_error"
)

// Error codes that are not validation tags.
const (
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeEmailNotVerified   = "AUTH_EMAIL_NOT_VERIFIED"
	CodeUnauthenticated    = "AUTH_UNAUTHENTICATED"
)

type codeInfo struct {
	kind    Kind
	message string
}

var codes = map[string]codeInfo{
	CodePasswordsDoNotMatch:   {KindValidation, "Passwords do not match"},
	CodePasswordTooShort:      {KindValidation, "Password is too short"},
	CodePasswordTooWeak:       {KindValidation, "Password is too weak"},
	CodeEmailTooShort:         {KindValidation, "Email is too short"},
	CodeEmailInvalid:          {KindValidation, "Email is invalid"},
	CodeUsernameTooShort:      {KindValidation, "Username is too short"},
	CodeEmailAlreadyExists:    {KindConflict, "user with email already exists"},
	CodeUsernameAlreadyExists: {KindConflict, "username already taken"},
	CodeAccountNotFound:       {KindNotFound, "User not found"},
	CodeInvalidCredentials:    {KindInvalidCredentials, "invalid credentials"},
	CodeEmailNotVerified:      {KindUnverified, "Email not verified"},
	CodeUnauthenticated:       {KindUnauthenticated, "not authenticated"},
}

// ErrorCode returns the oops code carried by err, or "" when it has none.
func ErrorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// KindOf classifies err. Anything without a known code is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if info, ok := codes[ErrorCode(err)]; ok {
		return info.kind
	}
	return KindInternal
}

// PublicMessage returns the text that may be shown to a client.
// Internal errors never expose their underlying text.
func PublicMessage(err error) string {
	if info, ok := codes[ErrorCode(err)]; ok {
		return info.message
	}
	return "internal error"
}

// codedError builds an error whose message is the public text for code.
// kv are attached as oops context pairs.
func codedError(code string, kv ...any) error {
	return oops.Code(code).With(kv...).Errorf("%s", codes[code].message)
}
