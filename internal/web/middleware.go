// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gobwas/glob"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/drgz/accounts/internal/logging"
	"github.com/drgz/accounts/pkg/errutil"
)

// RequestIDHeader carries the request ID on responses.
const RequestIDHeader = "X-Request-ID"

type bearerKey struct{}

// BearerToken returns the token stored by the bearer middleware, or "".
func BearerToken(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}

// parseBearer extracts the credential from an Authorization header value.
// Anything other than "<scheme> <token>" yields "".
func parseBearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// bearer stores the Authorization bearer token in the request context.
// A missing or malformed header stores nothing; resolution happens later.
func bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := parseBearer(r.Header.Get("Authorization")); token != "" {
			r = r.WithContext(context.WithValue(r.Context(), bearerKey{}, token))
		}
		next.ServeHTTP(w, r)
	})
}

// requestID assigns each request a ULID, exposes it in the response header
// and attaches it to the context for logging.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// accessLog logs one line per request after it completes.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds())
		})
	}
}

// recoverer turns a handler panic into a 500 response.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(rec)
				}
				err := oops.Code("HTTP_PANIC").
					With("method", r.Method).
					With("path", r.URL.Path).
					Errorf("panic: %v", rec)
				errutil.LogErrorContext(r.Context(), logger, "handler panic", err)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
					Kind:    "internal_error",
					Code:    codeInternal,
					Message: "internal error",
				}})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsHandler allows the configured origins. Origins may be glob patterns
// such as "https://*.example.com".
func corsHandler(origins []string) (func(http.Handler) http.Handler, error) {
	patterns := make([]glob.Glob, 0, len(origins))
	for _, origin := range origins {
		g, err := glob.Compile(origin)
		if err != nil {
			return nil, oops.Code("CORS_ORIGIN_INVALID").With("origin", origin).Wrap(err)
		}
		patterns = append(patterns, g)
	}

	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			for _, g := range patterns {
				if g.Match(origin) {
					return true
				}
			}
			return false
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Accept", "Content-Type"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}), nil
}
