// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

// Package web serves the accounts JSON API over HTTP.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/oops"
)

// Recorder counts finished API operations by outcome.
type Recorder interface {
	RecordOperation(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordOperation(string, string) {}

// Server is the accounts API server.
type Server struct {
	addr       string
	svc        AccountService
	logger     *slog.Logger
	metrics    Recorder
	origins    []string
	handler    http.Handler
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRecorder sets the operation metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.metrics = r }
}

// WithCORSOrigins sets the allowed cross-origin patterns.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// NewServer builds the API server for svc listening on addr.
func NewServer(addr string, svc AccountService, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, oops.Code("HTTP_SERVER_INVALID").Errorf("account service is required")
	}
	s := &Server{
		addr:    addr,
		svc:     svc,
		logger:  slog.Default(),
		metrics: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}

	handler, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.handler = handler
	return s, nil
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() (http.Handler, error) {
	withCORS, err := corsHandler(s.origins)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(s.logger))
	r.Use(recoverer(s.logger))
	r.Use(withCORS)
	r.Use(bearer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Get("/users", s.handleListUsers)
		r.Get("/me", s.handleMe)
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/verify-email", s.handleVerifyEmail)
		r.Post("/password-reset", s.handlePasswordReset)
		r.Post("/change-password", s.handleChangePassword)
	})
	return r, nil
}

// Start begins serving. The returned channel receives a serve failure and
// is closed once the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("HTTP_ALREADY_RUNNING").Errorf("http server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("HTTP_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("http server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.Code("HTTP_SHUTDOWN_FAILED").With("operation", "shutdown http server").Wrap(err)
		}
	}
	s.logger.Info("http server stopped")
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
