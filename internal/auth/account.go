// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package auth

import (
	"context"
	"time"
)

// Account represents a registered user account.
type Account struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone"`
	FirstName     *string   `json:"first_name"`
	LastName      *string   `json:"last_name"`
	City          *string   `json:"city"`
	State         *string   `json:"state"`
	Country       *string   `json:"country"`
	PasswordHash  *string   `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	PhoneVerified bool      `json:"phone_verified"`
	Deleted       bool      `json:"deleted"`
	IsStaff       bool      `json:"is_staff"`
	IsSuperuser   bool      `json:"is_superuser"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasPassword reports whether a password hash has been set.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// NewAccount holds the columns written when an account is registered.
// Storage assigns the ID and timestamps; EmailVerified starts false.
type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
}

// AccountLookup is the read side needed by registration validation.
type AccountLookup interface {
	// FindByEmail returns ErrNotFound if no live account has the email.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindByUsername returns ErrNotFound if no live account has the username.
	FindByUsername(ctx context.Context, username string) (*Account, error)
}

// AccountStore manages account persistence.
//
// Implementations ignore soft-deleted rows in every lookup and must enforce
// uniqueness of email and username, reporting violations as ErrEmailTaken
// or ErrUsernameTaken.
type AccountStore interface {
	AccountLookup

	// FindByID returns ErrNotFound if no live account has the id.
	FindByID(ctx context.Context, id int64) (*Account, error)

	// Insert stores a new unverified account and returns its id.
	Insert(ctx context.Context, account NewAccount) (int64, error)

	// SetEmailVerified marks the account with email as verified.
	// Unknown emails are a no-op, not an error.
	SetEmailVerified(ctx context.Context, email string) error

	// UpdatePasswordHash replaces the password hash of account id.
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error

	// ListAll returns every live account ordered by id.
	ListAll(ctx context.Context) ([]*Account, error)
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordInput is the password change payload. Token is a
// reset-purpose action token.
type ChangePasswordInput struct {
	Token     string `json:"token"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// LoginResult is returned by a successful login.
// RefreshToken is always empty; refresh tokens are not issued.
type LoginResult struct {
	Token        string   `json:"token"`
	Account      *Account `json:"user"`
	RefreshToken string   `json:"refresh_token"`
}

// SuccessMessage is the generic acknowledgement returned by mutations.
type SuccessMessage struct {
	Message string `json:"message"`
}

// Acknowledgement texts.
const (
	MessageEmailVerified  = "Email verified"
	MessageResetSent      = "Password reset instruction sent"
	MessagePasswordChange = "Password changed"
)
