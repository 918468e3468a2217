// Package analytics computes webhook performance metrics from the
// append-only performance log and raises threshold alerts over them.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/leadgate-systems/leadgate/internal/logging"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/store"
)

// Alerting thresholds. Processing-time alerts fire on a single slow
// request; error-rate alerts need a rolling window with enough samples
// to mean anything.
const (
	slowRequestHighMs     = 5000
	slowRequestCriticalMs = 10000

	errorRateWindow      = time.Hour
	errorRateHighPct     = 10.0
	errorRateCriticalPct = 25.0
	errorRateMinSamples  = 10

	recentErrorsCap = 10
)

// Service evaluates performance samples and serves aggregate views.
type Service struct {
	perf   store.PerfStore
	alerts store.AlertStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates an analytics service over the given stores.
func New(perf store.PerfStore, alerts store.AlertStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{perf: perf, alerts: alerts, logger: logger, now: time.Now}
}

// LogPerformance records one sample and evaluates alert conditions on it.
// Alert evaluation failures are logged, not returned: a monitoring hiccup
// must never fail the webhook path.
func (s *Service) LogPerformance(ctx context.Context, entry *models.WebhookPerformanceLog) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate log id: %w", err)
		}
		entry.ID = id.String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}

	if err := s.perf.InsertPerf(ctx, entry); err != nil {
		return fmt.Errorf("insert performance log: %w", err)
	}

	if err := s.evaluateAlerts(ctx, entry); err != nil {
		s.logger.Warn("alert evaluation failed",
			logging.Platform(entry.Platform),
			logging.Error(err))
	}
	return nil
}

func (s *Service) evaluateAlerts(ctx context.Context, entry *models.WebhookPerformanceLog) error {
	if entry.ProcessingTime > slowRequestHighMs {
		severity := models.SeverityHigh
		threshold := float64(slowRequestHighMs)
		if entry.ProcessingTime > slowRequestCriticalMs {
			severity = models.SeverityCritical
			threshold = float64(slowRequestCriticalMs)
		}
		err := s.raise(ctx, models.AlertProcessingTime, severity, entry.Platform,
			fmt.Sprintf("slow webhook processing on %s: %dms", entry.Platform, entry.ProcessingTime),
			threshold, float64(entry.ProcessingTime))
		if err != nil {
			return err
		}
	}

	return s.evaluateErrorRate(ctx, entry.Platform)
}

// evaluateErrorRate checks the rolling per-platform error rate. Small
// sample counts are skipped so one early failure cannot trip an alert.
func (s *Service) evaluateErrorRate(ctx context.Context, platform string) error {
	end := s.now().UTC()
	logs, err := s.perf.QueryPerf(ctx, end.Add(-errorRateWindow), end, platform)
	if err != nil {
		return fmt.Errorf("query error-rate window: %w", err)
	}
	if len(logs) < errorRateMinSamples {
		return nil
	}

	errorCount := 0
	for _, l := range logs {
		if l.StatusCode >= 400 {
			errorCount++
		}
	}
	rate := float64(errorCount) / float64(len(logs)) * 100

	switch {
	case rate > errorRateCriticalPct:
		return s.raise(ctx, models.AlertErrorRate, models.SeverityCritical, platform,
			fmt.Sprintf("error rate on %s at %.1f%% over the last hour", platform, rate),
			errorRateCriticalPct, rate)
	case rate > errorRateHighPct:
		return s.raise(ctx, models.AlertErrorRate, models.SeverityHigh, platform,
			fmt.Sprintf("error rate on %s at %.1f%% over the last hour", platform, rate),
			errorRateHighPct, rate)
	}
	return nil
}

// raise upserts the alert keyed by (type, platform); an ongoing condition
// refreshes the existing unresolved alert instead of stacking new rows.
func (s *Service) raise(ctx context.Context, alertType models.AlertType, severity models.AlertSeverity, platform, message string, threshold, current float64) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate alert id: %w", err)
	}

	alert := &models.WebhookAlert{
		ID:           id.String(),
		Type:         alertType,
		Severity:     severity,
		Platform:     platform,
		Message:      message,
		Threshold:    threshold,
		CurrentValue: current,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.alerts.UpsertAlert(ctx, alert); err != nil {
		return fmt.Errorf("upsert alert: %w", err)
	}

	s.logger.Warn("webhook alert raised",
		slog.String("alert_type", string(alertType)),
		slog.String("severity", string(severity)),
		logging.Platform(platform),
		slog.Float64("current_value", current))
	return nil
}

// Metrics aggregates performance samples in [start, end), optionally
// filtered by platform.
func (s *Service) Metrics(ctx context.Context, start, end time.Time, platform string) (*models.WebhookMetrics, error) {
	logs, err := s.perf.QueryPerf(ctx, start, end, platform)
	if err != nil {
		return nil, fmt.Errorf("query performance logs: %w", err)
	}
	return s.aggregate(logs), nil
}

func (s *Service) aggregate(logs []*models.WebhookPerformanceLog) *models.WebhookMetrics {
	m := &models.WebhookMetrics{
		ByPlatform: make(map[string]models.PlatformMetrics),
	}
	if len(logs) == 0 {
		return m
	}

	type acc struct {
		requests int
		errors   int
		totalMs  int64
	}
	byPlatform := make(map[string]*acc)
	hourly := make(map[time.Time]*acc)

	var totalMs int64
	errorCount := 0
	var recentErrors []models.WebhookPerformanceLog

	for _, l := range logs {
		totalMs += l.ProcessingTime
		isErr := l.StatusCode >= 400
		if isErr {
			errorCount++
			recentErrors = append(recentErrors, *l)
		}

		p, ok := byPlatform[l.Platform]
		if !ok {
			p = &acc{}
			byPlatform[l.Platform] = p
		}
		p.requests++
		p.totalMs += l.ProcessingTime
		if isErr {
			p.errors++
		}

		hour := l.Timestamp.UTC().Truncate(time.Hour)
		h, ok := hourly[hour]
		if !ok {
			h = &acc{}
			hourly[hour] = h
		}
		h.requests++
		h.totalMs += l.ProcessingTime
		if isErr {
			h.errors++
		}
	}

	m.TotalRequests = len(logs)
	m.ErrorRate = float64(errorCount) / float64(len(logs)) * 100
	m.SuccessRate = 100 - m.ErrorRate
	m.AvgProcessingTime = float64(totalMs) / float64(len(logs))

	for platform, a := range byPlatform {
		m.ByPlatform[platform] = models.PlatformMetrics{
			Requests:          a.requests,
			Errors:            a.errors,
			AvgProcessingTime: float64(a.totalMs) / float64(a.requests),
		}
	}

	// Most recent errors first, capped.
	sort.Slice(recentErrors, func(i, j int) bool {
		return recentErrors[i].Timestamp.After(recentErrors[j].Timestamp)
	})
	if len(recentErrors) > recentErrorsCap {
		recentErrors = recentErrors[:recentErrorsCap]
	}
	m.RecentErrors = recentErrors

	for hour, a := range hourly {
		m.Hourly = append(m.Hourly, models.HourlyBucket{
			Hour:              hour,
			Requests:          a.requests,
			Errors:            a.errors,
			AvgProcessingTime: float64(a.totalMs) / float64(a.requests),
		})
	}
	sort.Slice(m.Hourly, func(i, j int) bool {
		return m.Hourly[i].Hour.Before(m.Hourly[j].Hour)
	})

	return m
}

// Health composes last-hour and last-24h metrics with active alerts into
// a tri-state verdict.
func (s *Service) Health(ctx context.Context) (*models.HealthStatus, error) {
	now := s.now().UTC()

	lastHour, err := s.Metrics(ctx, now.Add(-time.Hour), now, "")
	if err != nil {
		return nil, err
	}
	last24, err := s.Metrics(ctx, now.Add(-24*time.Hour), now, "")
	if err != nil {
		return nil, err
	}

	active, err := s.alerts.ListActiveAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}

	status := models.HealthHealthy
	hasCritical := false
	for _, a := range active {
		if a.Severity == models.SeverityCritical {
			hasCritical = true
			break
		}
	}
	switch {
	case hasCritical:
		status = models.HealthCritical
	case len(active) > 0, lastHour.TotalRequests > 0 && lastHour.ErrorRate > errorRateHighPct:
		status = models.HealthWarning
	}

	uptime := 100.0
	if last24.TotalRequests > 0 {
		uptime = last24.SuccessRate
	}

	alerts := make([]models.WebhookAlert, 0, len(active))
	for _, a := range active {
		alerts = append(alerts, *a)
	}

	return &models.HealthStatus{
		Status:       status,
		Uptime:       uptime,
		LastHour:     *lastHour,
		Last24Hours:  *last24,
		ActiveAlerts: alerts,
		GeneratedAt:  now,
	}, nil
}

// ActiveAlerts returns every unresolved alert.
func (s *Service) ActiveAlerts(ctx context.Context) ([]*models.WebhookAlert, error) {
	return s.alerts.ListActiveAlerts(ctx)
}

// ResolveAlert marks an alert resolved. Resolving twice is a no-op.
func (s *Service) ResolveAlert(ctx context.Context, id string) error {
	if err := s.alerts.ResolveAlert(ctx, id, s.now().UTC()); err != nil {
		return fmt.Errorf("resolve alert %s: %w", id, err)
	}
	return nil
}
