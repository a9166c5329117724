// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

// Package auth provides account identity and authentication for drgz.
//
// # Domain Types
//
//   - Account - a registered user; the password hash is never serialised
//   - RegisterInput, LoginInput, ChangePasswordInput - operation payloads
//   - Message - a templated notification handed to a Notifier
//
// # Tokens
//
// TokenCodec signs two kinds of HS256 JWT with one shared secret:
//   - session tokens carry an account id and live SessionTokenTTL
//   - action tokens carry an email and an ActionPurpose and live ActionTokenTTL
//
// Resolution returns (value, ok) and never says why a token was rejected.
//
// # Services
//
// AccountService composes an AccountStore, a PasswordHasher, a TokenCodec and
// a Notifier into the account lifecycle:
//
//	unregistered -> unverified (Register) -> verified (VerifyEmail)
//
// Errors carry samber/oops codes. KindOf maps a code to the category exposed
// to clients and PublicMessage gives the text that is safe to show.
package auth
