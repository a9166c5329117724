// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

// Package store owns the PostgreSQL connection pool and the accounts schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Default connection retry settings.
const (
	DefaultConnectRetries = 5
	DefaultConnectBackoff = 500 * time.Millisecond
)

// Pinger is the part of a pool checked while connecting.
type Pinger interface {
	Ping(ctx context.Context) error
}

type connectConfig struct {
	retries uint64
	backoff time.Duration
	logger  *slog.Logger
}

// ConnectOption configures Connect.
type ConnectOption func(*connectConfig)

// WithRetries sets how many times a failed ping is retried.
func WithRetries(n uint64) ConnectOption {
	return func(c *connectConfig) { c.retries = n }
}

// WithBackoff sets the base delay of the exponential retry backoff.
func WithBackoff(d time.Duration) ConnectOption {
	return func(c *connectConfig) { c.backoff = d }
}

// WithLogger sets the logger used to report retried pings.
func WithLogger(logger *slog.Logger) ConnectOption {
	return func(c *connectConfig) { c.logger = logger }
}

// Connect opens a pgx pool for databaseURL and waits until the database
// answers a ping, retrying with exponential backoff.
func Connect(ctx context.Context, databaseURL string, opts ...ConnectOption) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := waitReady(ctx, pool, opts...); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// waitReady pings p until it succeeds or the retry budget is spent.
func waitReady(ctx context.Context, p Pinger, opts ...ConnectOption) error {
	cfg := connectConfig{
		retries: DefaultConnectRetries,
		backoff: DefaultConnectBackoff,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(cfg.retries, retry.NewExponential(cfg.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			cfg.logger.Warn("database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}
