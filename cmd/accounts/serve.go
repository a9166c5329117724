// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/drgz/accounts/internal/auth"
	"github.com/drgz/accounts/internal/auth/postgres"
	"github.com/drgz/accounts/internal/config"
	"github.com/drgz/accounts/internal/logging"
	"github.com/drgz/accounts/internal/notify"
	"github.com/drgz/accounts/internal/observability"
	"github.com/drgz/accounts/internal/store"
	"github.com/drgz/accounts/internal/web"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the accounts API server",
		Long: `Start the accounts HTTP API. Configuration comes from the file named by
--config (default: XDG_CONFIG_HOME/accounts/config.yaml when present),
overridden by any flags given here. Secrets (SECRET_KEY,
DATABASE_URL, ELASTIC_API_KEY) are read from the environment or a .env file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	cmd.Flags().String("http-addr", config.DefaultHTTPAddr, "API listen address")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", config.DefaultLogFormat, "log format (json or text)")
	cmd.Flags().String("log-level", config.DefaultLogLevel, "log level (debug, info, warn or error)")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.DatabaseConnector == nil {
		deps.DatabaseConnector = func(ctx context.Context, url string, opts ...store.ConnectOption) (Database, error) {
			return store.Connect(ctx, url, opts...)
		}
	}
	if deps.SenderFactory == nil {
		deps.SenderFactory = newSender
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.OnReady == nil {
		deps.OnReady = func(string) {}
	}

	path, err := resolveConfigFile()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return oops.With("operation", "load configuration").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}
	if err := cfg.Secrets.Validate(true); err != nil {
		return oops.With("operation", "validate secrets").Wrap(err)
	}

	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.Log.Level)
	logger.Info("starting accounts service",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"log_format", cfg.Log.Format,
	)

	db, err := deps.DatabaseConnector(ctx, cfg.Secrets.DatabaseURL,
		store.WithRetries(cfg.Database.ConnectRetries),
		store.WithBackoff(cfg.Database.ConnectBackoff),
		store.WithLogger(logger))
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load)
		metrics = obsServer.Metrics()
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	sender, err := deps.SenderFactory(cfg.Secrets, logger)
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return oops.With("operation", "create mail sender").Wrap(err)
	}
	renderer, err := notify.NewRenderer()
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return oops.With("operation", "load mail templates").Wrap(err)
	}
	dispatcher := notify.NewDispatcher(renderer, sender,
		notify.WithLogger(logger),
		notify.WithRecorder(metrics),
		notify.WithSendTimeout(cfg.Mail.SendTimeout))

	svc, err := newAccountService(postgres.NewAccountRepository(db), dispatcher, cfg, logger)
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return err
	}

	apiServer, err := web.NewServer(cfg.HTTP.Addr, svc,
		web.WithLogger(logger),
		web.WithRecorder(metrics),
		web.WithCORSOrigins(cfg.HTTP.CORSOrigins))
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return oops.With("operation", "create api server").Wrap(err)
	}
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ready.Store(true)
	cmd.Println("Accounts service started")
	logger.Info("accounts service ready", "http_addr", apiServer.Addr())
	deps.OnReady(apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("pending account mail abandoned", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// newAccountService wires the account core to its storage and mail delivery.
func newAccountService(
	repo auth.AccountStore,
	notifier auth.Notifier,
	cfg *config.Config,
	logger *slog.Logger,
) (*auth.AccountService, error) {
	codec, err := auth.NewTokenCodec([]byte(cfg.Secrets.SecretKey))
	if err != nil {
		return nil, oops.With("operation", "create token codec").Wrap(err)
	}
	svc, err := auth.NewAccountService(repo, auth.NewBcryptHasher(), codec, notifier,
		auth.WithMailSettings(cfg.Mail.Settings()),
		auth.WithLogger(logger))
	if err != nil {
		return nil, oops.With("operation", "create account service").Wrap(err)
	}
	return svc, nil
}

func stopObservability(obsServer ObservabilityServer, cfg *config.Config, logger *slog.Logger) {
	if obsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := obsServer.Stop(ctx); err != nil {
		logger.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports a failure. It exits
// when an error arrives, the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
