// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package auth

import (
	"context"
	"strings"
)

// Template names understood by the notification adapter.
const (
	TemplateRegister      = "register.html"
	TemplatePasswordReset = "password-reset.html"
)

// Message is a templated notification addressed to one recipient.
type Message struct {
	To       string
	From     string
	FromName string
	Subject  string
	Template string
	Vars     map[string]string
}

// Notifier sends templated messages. Notify must not block on delivery and
// reports nothing back: delivery failures are the implementation's to log.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// MailSettings holds the branding and addressing used to build account mail.
type MailSettings struct {
	From                 string
	FromName             string
	Domain               string
	Logo                 string
	Company              string
	RegisterSubject      string
	PasswordResetSubject string
}

// DefaultMailSettings returns the settings used when none are configured.
func DefaultMailSettings() MailSettings {
	return MailSettings{
		From:                 "info@ascendth.com",
		Domain:               "http://localhost:3000",
		Logo:                 "https://www.elegal.ascendth.com/_next/image?url=https%3A%2F%2Felegal-ascend.s3.amazonaws.com%2Fpublic%2Flogo.png&w=256&q=75",
		Company:              "drgz",
		RegisterSubject:      "Account Activation",
		PasswordResetSubject: "Password reset",
	}
}

// VerifyLink returns the email verification link for token.
func (s MailSettings) VerifyLink(token string) string {
	return strings.TrimSuffix(s.Domain, "/") + "/verify/" + token
}

// ResetLink returns the password reset link for token.
func (s MailSettings) ResetLink(token string) string {
	return strings.TrimSuffix(s.Domain, "/") + "/reset-password/" + token
}

// templateVars builds the variables shared by every account message.
func (s MailSettings) templateVars(account *Account, link string) map[string]string {
	return map[string]string{
		"username": account.Username,
		"email":    account.Email,
		"domain":   s.Domain,
		"logo":     s.Logo,
		"company":  s.Company,
		"link":     link,
	}
}
