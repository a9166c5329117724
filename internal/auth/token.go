// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Token lifetimes.
const (
	SessionTokenTTL = 1800 * time.Second
	ActionTokenTTL  = 604800 * time.Second
)

// ActionPurpose binds an action token to the workflow that minted it.
type ActionPurpose string

// Action token purposes.
const (
	PurposeVerifyEmail   ActionPurpose = "verify_email"
	PurposeResetPassword ActionPurpose = "reset_password"
)

// sessionClaims identify an account for authenticated requests.
type sessionClaims struct {
	jwt.RegisteredClaims
	ID string `json:"id"`
}

// actionClaims authorize a single follow-up action for an email address.
type actionClaims struct {
	jwt.RegisteredClaims
	Email   string        `json:"email"`
	Purpose ActionPurpose `json:"purpose"`
}

// TokenCodec issues and resolves HS256-signed session and action tokens.
// Resolution never reports why a token was rejected.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// TokenOption configures a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// NewTokenCodec creates a TokenCodec signing with secret.
func NewTokenCodec(secret []byte, opts ...TokenOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, oops.Code("TOKEN_SECRET_REQUIRED").Errorf("signing secret is required")
	}
	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IssueSession mints a session token for account id.
func (c *TokenCodec) IssueSession(id int64) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: c.registered(SessionTokenTTL),
		ID:               strconv.FormatInt(id, 10),
	}
	return c.sign(claims, "session")
}

// IssueAction mints an action token carrying email for the given purpose.
func (c *TokenCodec) IssueAction(purpose ActionPurpose, email string) (string, error) {
	claims := actionClaims{
		RegisteredClaims: c.registered(ActionTokenTTL),
		Email:            email,
		Purpose:          purpose,
	}
	return c.sign(claims, "action")
}

// ResolveSession returns the account id carried by token.
// ok is false for any malformed, tampered, or expired token.
func (c *TokenCodec) ResolveSession(token string) (id int64, ok bool) {
	var claims sessionClaims
	if !c.parse(token, &claims) {
		return 0, false
	}
	id, err := strconv.ParseInt(claims.ID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ResolveAction returns the email carried by token if it was minted for purpose.
// ok is false for any malformed, tampered, expired, or mismatched token.
func (c *TokenCodec) ResolveAction(purpose ActionPurpose, token string) (email string, ok bool) {
	var claims actionClaims
	if !c.parse(token, &claims) {
		return "", false
	}
	if claims.Purpose != purpose || claims.Email == "" {
		return "", false
	}
	return claims.Email, true
}

func (c *TokenCodec) registered(ttl time.Duration) jwt.RegisteredClaims {
	issuedAt := c.now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
}

func (c *TokenCodec) sign(claims jwt.Claims, kind string) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("kind", kind).Wrap(err)
	}
	return signed, nil
}

func (c *TokenCodec) parse(token string, claims jwt.Claims) bool {
	if token == "" {
		return false
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	return err == nil && parsed.Valid
}
