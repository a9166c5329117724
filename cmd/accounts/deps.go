// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/drgz/accounts/internal/auth/postgres"
	"github.com/drgz/accounts/internal/config"
	"github.com/drgz/accounts/internal/notify"
	"github.com/drgz/accounts/internal/observability"
	"github.com/drgz/accounts/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseConnector opens the connection pool.
	// Default: store.Connect
	DatabaseConnector func(ctx context.Context, url string, opts ...store.ConnectOption) (Database, error)

	// SenderFactory builds the mail transport.
	// Default: newSender
	SenderFactory func(secrets config.Secrets, logger *slog.Logger) (notify.Sender, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// OnReady is called with the bound API address once the service is serving.
	// Default: no-op
	OnReady func(apiAddr string)
}

// Database is the connection pool used by the serve command.
type Database interface {
	postgres.Pool
	Close()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// newSender picks Elastic Email delivery when an API key is configured and
// falls back to logging the mail otherwise.
func newSender(secrets config.Secrets, logger *slog.Logger) (notify.Sender, error) {
	if secrets.ElasticAPIKey == "" {
		logger.Warn("ELASTIC_API_KEY not set, account mail will be logged instead of sent")
		return notify.NewLogSender(logger), nil
	}
	//nolint:wrapcheck // constructor returns a coded error
	return notify.NewElasticSender(secrets.ElasticAPIKey)
}
