package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leadgate-systems/leadgate/internal/config"
	"github.com/leadgate-systems/leadgate/internal/dedup"
	"github.com/leadgate-systems/leadgate/internal/ingest"
	"github.com/leadgate-systems/leadgate/internal/logging"
	"github.com/leadgate-systems/leadgate/internal/mapper"
	"github.com/leadgate-systems/leadgate/internal/publisher"
	"github.com/leadgate-systems/leadgate/internal/retry"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one retry sweep over failed webhook events and exit",
	Long: `sweep replays eligible FAILED webhook events through the
ingestion pipeline once and prints the result. Intended for cron.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSweep(cmd.Context())
	},
}

func runSweep(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("leadgate-sweep"))
	logging.SetDefault(logger)

	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var pub publisher.Publisher = publisher.NoOp{}
	if cfg.NATS.Enabled {
		js, err := publisher.NewJetStream(ctx, cfg.NATS.URL)
		if err != nil {
			slog.Warn("NATS unavailable for sweep, replayed leads will not be published",
				logging.Error(err))
		} else {
			pub = js
		}
	}
	defer pub.Close()

	engine := dedup.New(st)
	ingestSvc := ingest.New(mapper.NewRegistry(), engine, st, st, pub, logger)
	sweeper := retry.NewSweeper(st, ingestSvc, logger.Logger, retry.Options{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BackoffBase: cfg.Retry.BackoffBase,
		BackoffCap:  cfg.Retry.BackoffCap,
		BatchSize:   cfg.Retry.BatchSize,
	})

	result, err := sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	stats, err := sweeper.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	fmt.Printf("sweep: scanned=%d succeeded=%d failed=%d\n", result.Scanned, result.Succeeded, result.Failed)
	fmt.Printf("queue: pending=%d retrying=%d dead_lettered=%d total=%d\n",
		stats.Pending, stats.Retrying, stats.DeadLettered, stats.Total)
	return nil
}
