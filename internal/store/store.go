// Package store defines the persistence contracts for leads, webhook
// events, performance logs and alerts, with Postgres and in-memory
// implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/leadgate-systems/leadgate/internal/models"
)

var (
	ErrLeadNotFound  = errors.New("lead not found")
	ErrLeadExists    = errors.New("lead already exists")
	ErrEventNotFound = errors.New("webhook event not found")
	ErrAlertNotFound = errors.New("alert not found")
)

// LeadStore persists leads keyed by lowercased email.
type LeadStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Lead, error)

	// Create inserts a new lead. Returns ErrLeadExists when another
	// submission won the insert race for the same email.
	Create(ctx context.Context, lead *models.Lead) error

	// Merge applies fn to the current lead row under an atomic
	// read-modify-write so concurrent duplicate submissions cannot lose
	// updates. Returns the merged lead.
	Merge(ctx context.Context, email string, fn func(*models.Lead) error) (*models.Lead, error)

	AddActivity(ctx context.Context, activity *models.LeadActivity) error
}

// EventStore persists webhook events, the retry-queue substrate.
type EventStore interface {
	CreateEvent(ctx context.Context, event *models.WebhookEvent) error
	UpdateEvent(ctx context.Context, event *models.WebhookEvent) error

	// ListRetryable returns FAILED events below the attempt cap whose
	// backoff delay has elapsed.
	ListRetryable(ctx context.Context, maxAttempts int, now time.Time, limit int) ([]*models.WebhookEvent, error)

	// RetryStats summarizes the retry queue: eligible now (pending),
	// waiting on backoff (retrying), exhausted (dead-lettered).
	RetryStats(ctx context.Context, maxAttempts int, now time.Time) (models.DeadLetterStats, error)
}

// PerfStore persists append-only performance samples.
type PerfStore interface {
	InsertPerf(ctx context.Context, entry *models.WebhookPerformanceLog) error

	// QueryPerf returns samples in [start, end), optionally filtered by
	// platform, ordered by timestamp ascending.
	QueryPerf(ctx context.Context, start, end time.Time, platform string) ([]*models.WebhookPerformanceLog, error)
}

// AlertStore persists threshold alerts.
type AlertStore interface {
	// UpsertAlert inserts the alert, or refreshes the current value of an
	// unresolved alert with the same type and platform instead of
	// stacking duplicates for an ongoing condition.
	UpsertAlert(ctx context.Context, alert *models.WebhookAlert) error

	ListActiveAlerts(ctx context.Context) ([]*models.WebhookAlert, error)

	// ResolveAlert marks an alert resolved; resolving twice is a no-op.
	ResolveAlert(ctx context.Context, id string, at time.Time) error
}

// Store aggregates every persistence concern of the gateway.
type Store interface {
	LeadStore
	EventStore
	PerfStore
	AlertStore
	Close() error
}
