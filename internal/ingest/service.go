// Package ingest orchestrates the webhook pipeline: envelope extraction,
// mapping, validation, processing, dedup, persistence and downstream
// publishing, with per-item failure isolation.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leadgate-systems/leadgate/internal/dedup"
	"github.com/leadgate-systems/leadgate/internal/httputil"
	"github.com/leadgate-systems/leadgate/internal/logging"
	"github.com/leadgate-systems/leadgate/internal/mapper"
	"github.com/leadgate-systems/leadgate/internal/metrics"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
	"github.com/leadgate-systems/leadgate/internal/processor"
	"github.com/leadgate-systems/leadgate/internal/publisher"
	"github.com/leadgate-systems/leadgate/internal/retry"
	"github.com/leadgate-systems/leadgate/internal/store"
)

// eventType labels lead submission events in the webhook_events table.
const eventType = "lead.submission"

// Service runs webhook payloads through the ingestion pipeline.
type Service struct {
	mappers *mapper.Registry
	engine  *dedup.Engine
	leads   store.LeadStore
	events  store.EventStore
	pub     publisher.Publisher
	logger  *logging.Logger
	now     func() time.Time
}

// New wires the ingestion service.
func New(mappers *mapper.Registry, engine *dedup.Engine, leads store.LeadStore, events store.EventStore, pub publisher.Publisher, logger *logging.Logger) *Service {
	if pub == nil {
		pub = publisher.NoOp{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		mappers: mappers,
		engine:  engine,
		leads:   leads,
		events:  events,
		pub:     pub,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleWebhook processes one inbound delivery. Item failures are
// isolated: each failing payload yields a failed item result and a FAILED
// webhook event while its siblings continue. A payload whose shape is not
// recognized at all is acknowledged with zero results so platforms do not
// retry junk forever.
func (s *Service) HandleWebhook(ctx context.Context, platform platforms.Platform, body []byte, rctx httputil.RequestContext) (*models.WebhookResponse, error) {
	start := s.now()
	metrics.WebhooksReceived.WithLabelValues(string(platform)).Inc()

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		// The event payload column is jsonb, so wrap the broken body in
		// a valid envelope or the failure row itself would be rejected.
		wrapped, _ := json.Marshal(map[string]string{"raw": string(body)})
		s.recordEvent(ctx, platform, wrapped, models.EventFailed, fmt.Sprintf("invalid JSON: %v", err))
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	items := extractItems(platform, raw)
	if len(items) == 0 {
		s.logger.WarnContext(ctx, "unrecognized webhook payload shape",
			logging.Platform(string(platform)))
		return &models.WebhookResponse{
			Success:        true,
			Message:        "no lead data found in payload",
			ProcessingTime: s.since(start),
		}, nil
	}

	results := make([]models.ItemResult, 0, len(items))
	failed := 0
	for _, item := range items {
		result := s.processItem(ctx, platform, item, rctx)
		if result.Status == models.ItemFailed {
			failed++
		}
		results = append(results, result)
	}

	elapsed := s.since(start)
	metrics.ProcessingDuration.WithLabelValues(string(platform)).Observe(float64(elapsed) / 1000)

	msg := fmt.Sprintf("processed %d lead(s)", len(results))
	if failed > 0 {
		msg = fmt.Sprintf("processed %d lead(s), %d failed", len(results), failed)
	}
	return &models.WebhookResponse{
		Success:        failed == 0,
		Message:        msg,
		Results:        results,
		ProcessingTime: elapsed,
	}, nil
}

// processItem runs one lead payload through map, validate, process,
// dedup, activity and publish, recording the webhook event either way.
func (s *Service) processItem(ctx context.Context, platform platforms.Platform, item map[string]any, rctx httputil.RequestContext) models.ItemResult {
	payload, err := json.Marshal(item)
	if err != nil {
		payload = json.RawMessage(`{}`)
	}

	lead, outcome, err := s.ingestItem(ctx, platform, item, rctx)
	if err != nil {
		metrics.ItemsFailed.WithLabelValues(string(platform)).Inc()
		s.recordEvent(ctx, platform, payload, models.EventFailed, err.Error())
		s.logger.WarnContext(ctx, "lead payload failed",
			logging.Platform(string(platform)),
			logging.Error(err))
		return models.ItemResult{Status: models.ItemFailed, Error: err.Error()}
	}

	s.recordEvent(ctx, platform, payload, models.EventSuccess, "")

	status := models.ItemCreated
	if outcome == dedup.OutcomeMerged {
		status = models.ItemDuplicate
		metrics.LeadsMerged.WithLabelValues(string(platform)).Inc()
	} else {
		metrics.LeadsCreated.WithLabelValues(string(platform)).Inc()
	}

	return models.ItemResult{Status: status, Email: lead.Email, LeadID: lead.ID}
}

// ingestItem is the shared pipeline core used by both the live path and
// retry replay.
func (s *Service) ingestItem(ctx context.Context, platform platforms.Platform, item map[string]any, rctx httputil.RequestContext) (*models.Lead, dedup.Outcome, error) {
	m, err := s.mappers.For(platform)
	if err != nil {
		return nil, "", err
	}

	u, err := m.Map(item, rctx)
	if err != nil {
		return nil, "", fmt.Errorf("map payload: %w", err)
	}

	if v := processor.ValidateLead(u); !v.Valid {
		return nil, "", fmt.Errorf("invalid lead: %s", strings.Join(v.Errors, "; "))
	}

	now := s.now().UTC()
	lead := processor.Process(u, processor.Options{Platform: platform, Now: now})
	sub := processor.SubmissionFrom(u, now)

	stored, outcome, err := s.engine.Upsert(ctx, lead, sub)
	if err != nil {
		return nil, "", err
	}

	s.addActivity(ctx, stored, platform, outcome)
	s.publish(ctx, stored, outcome)

	s.logger.InfoContext(ctx, "lead ingested",
		logging.Platform(string(platform)),
		logging.LeadID(stored.ID),
		logging.Email(stored.Email),
		logging.Outcome(string(outcome)))

	return stored, outcome, nil
}

// addActivity appends the FORM_SUBMITTED audit entry. An audit write
// failure is logged, not propagated: the lead is already persisted.
func (s *Service) addActivity(ctx context.Context, lead *models.Lead, platform platforms.Platform, outcome dedup.Outcome) {
	id, err := uuid.NewV7()
	if err != nil {
		return
	}
	activity := &models.LeadActivity{
		ID:          id.String(),
		LeadID:      lead.ID,
		Type:        models.ActivityFormSubmitted,
		Description: fmt.Sprintf("form submission via %s (%s)", platform, outcome),
		Metadata:    map[string]any{"platform": string(platform), "outcome": string(outcome)},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.leads.AddActivity(ctx, activity); err != nil {
		s.logger.WarnContext(ctx, "failed to record lead activity",
			logging.LeadID(lead.ID),
			logging.Error(err))
	}
}

// publish announces the lead downstream. Best-effort: the persisted
// webhook event is the delivery guarantee.
func (s *Service) publish(ctx context.Context, lead *models.Lead, outcome dedup.Outcome) {
	if err := s.pub.PublishLead(ctx, lead, outcome); err != nil {
		metrics.PublishFailures.Inc()
		s.logger.WarnContext(ctx, "downstream publish failed",
			logging.LeadID(lead.ID),
			logging.Error(err))
	}
}

// recordEvent persists one webhook event row. Failures here are logged;
// they must not mask the pipeline outcome.
func (s *Service) recordEvent(ctx context.Context, platform platforms.Platform, payload json.RawMessage, status models.EventStatus, lastError string) {
	id, err := uuid.NewV7()
	if err != nil {
		return
	}
	now := s.now().UTC()
	event := &models.WebhookEvent{
		ID:        id.String(),
		Type:      eventType,
		Platform:  string(platform),
		Payload:   payload,
		Status:    status,
		Attempts:  1,
		LastError: lastError,
		CreatedAt: now,
	}
	if status == models.EventSuccess {
		event.ProcessedAt = &now
	} else {
		// Schedule the first retry up front so the sweeper honors the
		// full backoff from the moment of failure.
		next := now.Add(retry.Backoff(retry.DefaultBackoffBase, retry.DefaultBackoffCap, event.Attempts))
		event.NextRetryAt = &next
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist webhook event",
			logging.Platform(string(platform)),
			logging.Error(err))
	}
}

// Replay runs a stored event payload back through the pipeline. It is
// the retry sweeper's replayer: the caller owns the event row updates.
func (s *Service) Replay(ctx context.Context, event *models.WebhookEvent) error {
	platform, err := platforms.Parse(event.Platform)
	if err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(event.Payload, &raw); err != nil {
		return fmt.Errorf("parse stored payload: %w", err)
	}

	items := extractItems(platform, raw)
	if len(items) == 0 {
		return fmt.Errorf("no lead data in stored payload")
	}

	for _, item := range items {
		if _, _, err := s.ingestItem(ctx, platform, item, httputil.RequestContext{}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) since(start time.Time) int64 {
	return s.now().Sub(start).Milliseconds()
}
