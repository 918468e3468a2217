package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leadgate-systems/leadgate/internal/analytics"
	"github.com/leadgate-systems/leadgate/internal/config"
	"github.com/leadgate-systems/leadgate/internal/dedup"
	"github.com/leadgate-systems/leadgate/internal/handlers"
	"github.com/leadgate-systems/leadgate/internal/ingest"
	"github.com/leadgate-systems/leadgate/internal/logging"
	"github.com/leadgate-systems/leadgate/internal/mapper"
	"github.com/leadgate-systems/leadgate/internal/middleware"
	"github.com/leadgate-systems/leadgate/internal/publisher"
	"github.com/leadgate-systems/leadgate/internal/ratelimit"
	"github.com/leadgate-systems/leadgate/internal/retry"
	"github.com/leadgate-systems/leadgate/internal/security"
	"github.com/leadgate-systems/leadgate/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook gateway HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("leadgate"))
	logging.SetDefault(logger)

	slog.Info("Starting leadgate service",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx := context.Background()

	// Storage
	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Rate limiter
	var limiter ratelimit.Limiter
	switch {
	case !cfg.RateLimit.Enabled:
		limiter = &ratelimit.NoOpLimiter{}
		slog.Info("Rate limiting disabled in configuration")
	case cfg.Redis.Enabled:
		limiter, err = ratelimit.NewRedisLimiter(cfg.Redis.URL, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			slog.Warn("Failed to initialize Redis rate limiter, falling back to in-memory",
				logging.Error(err))
			limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.MaxKeys)
		} else {
			slog.Info("Redis rate limiting enabled",
				slog.Int("requests", cfg.RateLimit.Requests),
				slog.Duration("window", cfg.RateLimit.Window))
		}
	default:
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.MaxKeys)
		slog.Info("In-memory rate limiting enabled (counters are per instance)",
			slog.Int("requests", cfg.RateLimit.Requests),
			slog.Duration("window", cfg.RateLimit.Window))
	}
	defer limiter.Close()

	// Security gate
	gate := security.New(limiter, cfg.Security.Enabled)
	if !cfg.Security.Enabled {
		slog.Warn("SECURITY GATE DISABLED: webhooks are accepted without signature, timestamp or rate-limit checks")
	}

	// Downstream publisher
	var pub publisher.Publisher = publisher.NoOp{}
	if cfg.NATS.Enabled {
		js, err := publisher.NewJetStream(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("failed to initialize NATS publisher: %w", err)
		}
		pub = js
		slog.Info("NATS publishing enabled", slog.String("url", cfg.NATS.URL))
	} else {
		slog.Info("NATS disabled, downstream publishing off")
	}
	defer pub.Close()

	// Services
	engine := dedup.New(st)
	ingestSvc := ingest.New(mapper.NewRegistry(), engine, st, st, pub, logger)
	analyticsSvc := analytics.New(st, st, logger.Logger)
	sweeper := retry.NewSweeper(st, ingestSvc, logger.Logger, retry.Options{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BackoffBase: cfg.Retry.BackoffBase,
		BackoffCap:  cfg.Retry.BackoffCap,
		BatchSize:   cfg.Retry.BatchSize,
	})

	// HTTP surface
	webhookHandler := handlers.NewWebhookHandler(ingestSvc, gate, analyticsSvc, handlers.GateConfig{
		CheckSignature: cfg.Security.CheckSignature,
		CheckTimestamp: cfg.Security.CheckTimestamp,
		CheckRateLimit: cfg.RateLimit.Enabled,
		Tolerance:      cfg.Security.TimestampTolerance,
	}, logger)
	adminHandler := handlers.NewAdminHandler(sweeper, analyticsSvc, cfg.Admin.APIKey, logger)
	if cfg.Admin.APIKey == "" {
		slog.Warn("Admin API key not configured, admin endpoints will reject all requests")
	}

	ready := func(ctx context.Context) error {
		_, err := st.ListActiveAlerts(ctx)
		return err
	}
	srv := server.New(server.Options{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		CORS:         middleware.DefaultCORSConfig(),
	}, webhookHandler, adminHandler, ready, logger)

	// Optional background sweep ticker
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if cfg.Retry.SweepInterval > 0 {
		slog.Info("Background retry sweep enabled", slog.Duration("interval", cfg.Retry.SweepInterval))
		go sweeper.Run(sweepCtx, cfg.Retry.SweepInterval)
	} else {
		slog.Info("Background retry sweep disabled, use the sweep command or the admin endpoint")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		slog.Info("Shutting down", slog.String("signal", sig.String()))
	}

	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}
