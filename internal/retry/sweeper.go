// Package retry replays failed webhook events with exponential backoff
// and exposes dead-letter queue statistics.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadgate-systems/leadgate/internal/logging"
	"github.com/leadgate-systems/leadgate/internal/metrics"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/store"
)

const (
	// DefaultMaxAttempts counts the original delivery plus retries.
	// An event at the cap is dead-lettered: excluded from sweeps but
	// still queryable.
	DefaultMaxAttempts = 5

	// DefaultBackoffBase seeds the base×2^attempts delay.
	DefaultBackoffBase = time.Minute

	// DefaultBackoffCap bounds the delay between attempts.
	DefaultBackoffCap = time.Hour

	// DefaultBatchSize bounds events loaded per sweep.
	DefaultBatchSize = 100
)

// Replayer runs a stored payload back through the ingestion pipeline.
// Implemented by the ingest service; declared here so the sweeper does
// not depend on it.
type Replayer interface {
	Replay(ctx context.Context, event *models.WebhookEvent) error
}

// Options tune a Sweeper. Zero values take the defaults above.
type Options struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	BatchSize   int
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Sweeper scans FAILED webhook events and replays the eligible ones.
type Sweeper struct {
	events   store.EventStore
	replayer Replayer
	logger   *slog.Logger
	opts     Options
	now      func() time.Time
}

// NewSweeper creates a sweeper over the event store.
func NewSweeper(events store.EventStore, replayer Replayer, logger *slog.Logger, opts Options) *Sweeper {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = DefaultBackoffCap
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{events: events, replayer: replayer, logger: logger, opts: opts, now: time.Now}
}

// Sweep replays every eligible failed event once. Event outcomes are
// isolated: one replay failing does not stop the rest of the batch.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	metrics.RetrySweeps.Inc()

	now := s.now().UTC()
	events, err := s.events.ListRetryable(ctx, s.opts.MaxAttempts, now, s.opts.BatchSize)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list retryable events: %w", err)
	}

	result := SweepResult{Scanned: len(events)}
	for _, event := range events {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if s.replay(ctx, event) {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	if result.Scanned > 0 {
		s.logger.Info("retry sweep complete",
			slog.Int("scanned", result.Scanned),
			slog.Int("succeeded", result.Succeeded),
			slog.Int("failed", result.Failed))
	}
	return result, nil
}

// replay runs one event through the pipeline and persists the outcome.
func (s *Sweeper) replay(ctx context.Context, event *models.WebhookEvent) bool {
	replayErr := s.replayer.Replay(ctx, event)

	now := s.now().UTC()
	event.Attempts++

	if replayErr == nil {
		event.Status = models.EventSuccess
		event.LastError = ""
		event.NextRetryAt = nil
		event.ProcessedAt = &now
		metrics.RetrySuccesses.Inc()
	} else {
		event.LastError = replayErr.Error()
		next := now.Add(s.backoff(event.Attempts))
		event.NextRetryAt = &next
		metrics.RetryFailures.Inc()
		s.logger.Warn("event replay failed",
			logging.EventID(event.ID),
			logging.Platform(event.Platform),
			logging.Attempts(event.Attempts),
			logging.Error(replayErr))
	}

	if err := s.events.UpdateEvent(ctx, event); err != nil {
		s.logger.Error("failed to persist retry outcome",
			logging.EventID(event.ID),
			logging.Error(err))
		return false
	}
	return replayErr == nil
}

// backoff returns base×2^attempts capped at the configured maximum.
func (s *Sweeper) backoff(attempts int) time.Duration {
	return Backoff(s.opts.BackoffBase, s.opts.BackoffCap, attempts)
}

// Backoff computes the base×2^attempts delay, capped at limit. Shared
// with the ingest path, which schedules a fresh failure's first retry
// when it records the event.
func Backoff(base, limit time.Duration, attempts int) time.Duration {
	d := base
	for i := 0; i < attempts && d < limit; i++ {
		d *= 2
	}
	if d > limit {
		d = limit
	}
	return d
}

// Stats reports the current retry-queue breakdown.
func (s *Sweeper) Stats(ctx context.Context) (models.DeadLetterStats, error) {
	stats, err := s.events.RetryStats(ctx, s.opts.MaxAttempts, s.now().UTC())
	if err != nil {
		return models.DeadLetterStats{}, fmt.Errorf("query retry stats: %w", err)
	}
	metrics.DeadLetterEvents.Set(float64(stats.DeadLettered))
	return stats, nil
}

// Run sweeps on a fixed interval until the context is cancelled. Used by
// the serve command's optional background ticker.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("background sweep failed", logging.Error(err))
			}
		}
	}
}
