// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/samber/oops"

	"github.com/drgz/accounts/internal/auth"
	"github.com/drgz/accounts/pkg/errutil"
)

// APIVersion is reported by GET /api/version.
const APIVersion = "1.0"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

const codeInternal = "INTERNAL_ERROR"

// Operation names used for metrics.
const (
	opListUsers      = "list_users"
	opMe             = "me"
	opRegister       = "register"
	opLogin          = "login"
	opVerifyEmail    = "verify_email"
	opPasswordReset  = "password_reset"
	opChangePassword = "change_password"
)

// AccountService is the account API consumed by the handlers.
// *auth.AccountService implements it.
type AccountService interface {
	ListAll(ctx context.Context) ([]*auth.Account, error)
	Me(ctx context.Context, sessionToken string) (*auth.Account, error)
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Account, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.LoginResult, error)
	VerifyEmailToken(ctx context.Context, token string) (*auth.SuccessMessage, error)
	RequestPasswordReset(ctx context.Context, email string) (*auth.SuccessMessage, error)
	ChangePassword(ctx context.Context, in auth.ChangePasswordInput) (*auth.SuccessMessage, error)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type versionResponse struct {
	APIVersion string `json:"api_version"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindInvalidCredentials, auth.KindUnauthenticated:
		return http.StatusUnauthorized
	case auth.KindUnverified:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{APIVersion: APIVersion})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.ListAll(r.Context())
	s.respond(w, r, opListUsers, http.StatusOK, accounts, err)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	account, err := s.svc.Me(r.Context(), BearerToken(r.Context()))
	s.respond(w, r, opMe, http.StatusOK, account, err)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if !s.decode(w, r, opRegister, &in) {
		return
	}
	account, err := s.svc.Register(r.Context(), in)
	s.respond(w, r, opRegister, http.StatusCreated, account, err)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if !s.decode(w, r, opLogin, &in) {
		return
	}
	result, err := s.svc.Login(r.Context(), in)
	s.respond(w, r, opLogin, http.StatusOK, result, err)
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if !s.decode(w, r, opVerifyEmail, &in) {
		return
	}
	msg, err := s.svc.VerifyEmailToken(r.Context(), in.Token)
	s.respond(w, r, opVerifyEmail, http.StatusOK, msg, err)
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if !s.decode(w, r, opPasswordReset, &in) {
		return
	}
	msg, err := s.svc.RequestPasswordReset(r.Context(), in.Email)
	s.respond(w, r, opPasswordReset, http.StatusOK, msg, err)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in auth.ChangePasswordInput
	if !s.decode(w, r, opChangePassword, &in) {
		return
	}
	msg, err := s.svc.ChangePassword(r.Context(), in)
	s.respond(w, r, opChangePassword, http.StatusOK, msg, err)
}

// decode reads a JSON body into v. On failure it writes a validation error
// and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.metrics.RecordOperation(op, string(auth.KindValidation))
		message := "request body must be a JSON object"
		if errors.Is(err, io.EOF) {
			message = "request body is required"
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Kind:    string(auth.KindValidation),
			Code:    "invalid_body",
			Message: message,
		}})
		return false
	}
	return true
}

// respond writes body with status, or the error response for err.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, op string, status int, body any, err error) {
	if err == nil {
		s.metrics.RecordOperation(op, "ok")
		writeJSON(w, status, body)
		return
	}

	kind := auth.KindOf(err)
	s.metrics.RecordOperation(op, string(kind))

	resp := errorBody{
		Kind:    string(kind),
		Code:    auth.ErrorCode(err),
		Message: auth.PublicMessage(err),
		Field:   auth.ValidationField(err),
	}
	if kind == auth.KindInternal {
		errutil.LogErrorContext(r.Context(), s.logger, "request failed",
			oops.With("operation", op).Wrap(err))
		resp.Code = codeInternal
		resp.Field = ""
	}
	writeJSON(w, statusFor(kind), errorResponse{Error: resp})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may have disconnected
	json.NewEncoder(w).Encode(body)
}
