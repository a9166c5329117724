// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// AccountService implements the account lifecycle: registration, email
// verification, login, and password reset.
type AccountService struct {
	store    AccountStore
	hasher   PasswordHasher
	codec    *TokenCodec
	notifier Notifier
	mail     MailSettings
	logger   *slog.Logger
}

// ServiceOption configures an AccountService.
type ServiceOption func(*AccountService)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *AccountService) {
		s.logger = logger
	}
}

// WithMailSettings overrides DefaultMailSettings.
func WithMailSettings(mail MailSettings) ServiceOption {
	return func(s *AccountService) {
		s.mail = mail
	}
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	store AccountStore,
	hasher PasswordHasher,
	codec *TokenCodec,
	notifier Notifier,
	opts ...ServiceOption,
) (*AccountService, error) {
	if store == nil {
		return nil, oops.Errorf("account store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Errorf("token codec is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}

	s := &AccountService{
		store:    store,
		hasher:   hasher,
		codec:    codec,
		notifier: notifier,
		mail:     DefaultMailSettings(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return s, nil
}

// Get returns the account with id.
func (s *AccountService) Get(ctx context.Context, id int64) (*Account, error) {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeAccountNotFound).With("id", id).Wrap(err)
		}
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "find by id").
			With("id", id).
			Wrap(err)
	}
	return account, nil
}

// ListAll returns every account. There is no pagination.
func (s *AccountService) ListAll(ctx context.Context) ([]*Account, error) {
	accounts, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list all").
			Wrap(err)
	}
	return accounts, nil
}

// Me returns the account identified by a session token.
func (s *AccountService) Me(ctx context.Context, sessionToken string) (*Account, error) {
	id, ok := s.codec.ResolveSession(sessionToken)
	if !ok {
		return nil, codedError(CodeUnauthenticated)
	}
	return s.Get(ctx, id)
}

// Register validates in, creates an unverified account, and sends the
// verification mail. Mail delivery is best effort and never fails registration.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	if err := ValidateRegistration(ctx, in, s.store); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password1)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	id, err := s.store.Insert(ctx, NewAccount{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, ErrEmailTaken):
		return nil, fieldError(CodeEmailAlreadyExists, "email")
	case errors.Is(err, ErrUsernameTaken):
		return nil, fieldError(CodeUsernameAlreadyExists, "username")
	case err != nil:
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "insert account").
			With("username", in.Username).
			Wrap(err)
	}

	s.sendAccountMail(ctx, &Account{ID: id, Username: in.Username, Email: in.Email},
		PurposeVerifyEmail, TemplateRegister, s.mail.RegisterSubject, s.mail.VerifyLink)

	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "reload account").
			With("id", id).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", id)
	return account, nil
}

// VerifyEmail marks the account with email as verified. It reports success
// whether or not such an account exists, and repeating it is a no-op.
func (s *AccountService) VerifyEmail(ctx context.Context, email string) (*SuccessMessage, error) {
	if err := s.store.SetEmailVerified(ctx, email); err != nil {
		return nil, oops.Code("VERIFY_EMAIL_FAILED").
			With("operation", "set email verified").
			Wrap(err)
	}
	return &SuccessMessage{Message: MessageEmailVerified}, nil
}

// VerifyEmailToken verifies the email carried by a verification token.
// An unusable token resolves to the empty email and so verifies nothing.
func (s *AccountService) VerifyEmailToken(ctx context.Context, token string) (*SuccessMessage, error) {
	email, _ := s.codec.ResolveAction(PurposeVerifyEmail, token)
	return s.VerifyEmail(ctx, email)
}

// RequestPasswordReset sends reset instructions when email belongs to an
// account. The response is identical whether or not it does.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (*SuccessMessage, error) {
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &SuccessMessage{Message: MessageResetSent}, nil
		}
		return nil, oops.Code("RESET_REQUEST_FAILED").
			With("operation", "find by email").
			Wrap(err)
	}

	s.sendAccountMail(ctx, account,
		PurposeResetPassword, TemplatePasswordReset, s.mail.PasswordResetSubject, s.mail.ResetLink)

	return &SuccessMessage{Message: MessageResetSent}, nil
}

// Login authenticates by email and password and mints a session token.
// Unknown emails and wrong passwords fail identically; unverified accounts
// are rejected before the password is checked.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	account, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, codedError(CodeInvalidCredentials)
		}
		return nil, oops.Code("LOGIN_FAILED").
			With("operation", "find by email").
			Wrap(err)
	}

	if !account.EmailVerified {
		return nil, codedError(CodeEmailNotVerified, "account_id", account.ID)
	}

	var hash string
	if account.PasswordHash != nil {
		hash = *account.PasswordHash
	}
	if !s.hasher.Verify(in.Password, hash) {
		return nil, codedError(CodeInvalidCredentials)
	}

	token, err := s.codec.IssueSession(account.ID)
	if err != nil {
		return nil, oops.Code("LOGIN_FAILED").
			With("operation", "issue session token").
			With("account_id", account.ID).
			Wrap(err)
	}

	return &LoginResult{Token: token, Account: account}, nil
}

// ChangePassword replaces the password of the account named by a reset token.
// An unusable token resolves to the empty email, which then fails the
// account lookup with ACCOUNT_NOT_FOUND.
func (s *AccountService) ChangePassword(ctx context.Context, in ChangePasswordInput) (*SuccessMessage, error) {
	if err := ValidatePasswordChange(in); err != nil {
		return nil, err
	}

	email, _ := s.codec.ResolveAction(PurposeResetPassword, in.Token)

	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeAccountNotFound).Wrap(err)
		}
		return nil, oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "find by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password1)
	if err != nil {
		return nil, oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.store.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeAccountNotFound).With("id", account.ID).Wrap(err)
		}
		return nil, oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "update password hash").
			With("id", account.ID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password changed", "account_id", account.ID)
	return &SuccessMessage{Message: MessagePasswordChange}, nil
}

// sendAccountMail mints an action token for account and hands the message to
// the notifier. Failures are logged and never returned.
func (s *AccountService) sendAccountMail(
	ctx context.Context,
	account *Account,
	purpose ActionPurpose,
	template, subject string,
	link func(token string) string,
) {
	token, err := s.codec.IssueAction(purpose, account.Email)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort notification skipped",
			"operation", "issue action token",
			"purpose", string(purpose),
			"account_id", account.ID,
			"error", err,
		)
		return
	}

	s.notifier.Notify(ctx, Message{
		To:       account.Email,
		From:     s.mail.From,
		FromName: s.mail.FromName,
		Subject:  subject,
		Template: template,
		Vars:     s.mail.templateVars(account, link(token)),
	})
}
