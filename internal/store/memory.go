package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leadgate-systems/leadgate/internal/models"
)

// MemoryStore is a mutex-guarded in-memory Store for tests and local
// development. The single lock makes Merge trivially atomic.
type MemoryStore struct {
	mu         sync.Mutex
	leads      map[string]*models.Lead // keyed by lowercased email
	activities []*models.LeadActivity
	events     map[string]*models.WebhookEvent
	perf       []*models.WebhookPerformanceLog
	alerts     map[string]*models.WebhookAlert
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads:  make(map[string]*models.Lead),
		events: make(map[string]*models.WebhookEvent),
		alerts: make(map[string]*models.WebhookAlert),
	}
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[strings.ToLower(email)]
	if !ok {
		return nil, ErrLeadNotFound
	}
	cp := *lead
	return &cp, nil
}

func (s *MemoryStore) Create(ctx context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(lead.Email)
	if _, exists := s.leads[key]; exists {
		return ErrLeadExists
	}
	cp := *lead
	s.leads[key] = &cp
	return nil
}

func (s *MemoryStore) Merge(ctx context.Context, email string, fn func(*models.Lead) error) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	lead, ok := s.leads[key]
	if !ok {
		return nil, ErrLeadNotFound
	}
	if err := fn(lead); err != nil {
		return nil, err
	}
	lead.UpdatedAt = time.Now().UTC()
	cp := *lead
	return &cp, nil
}

func (s *MemoryStore) AddActivity(ctx context.Context, activity *models.LeadActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *activity
	s.activities = append(s.activities, &cp)
	return nil
}

// Activities returns the audit log for a lead, oldest first.
func (s *MemoryStore) Activities(leadID string) []*models.LeadActivity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.LeadActivity
	for _, a := range s.activities {
		if a.LeadID == leadID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

func (s *MemoryStore) CreateEvent(ctx context.Context, event *models.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *event
	s.events[event.ID] = &cp
	return nil
}

// Events returns every webhook event row, oldest first.
func (s *MemoryStore) Events() []*models.WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.WebhookEvent
	for _, e := range s.events {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) UpdateEvent(ctx context.Context, event *models.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; !ok {
		return ErrEventNotFound
	}
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *MemoryStore) ListRetryable(ctx context.Context, maxAttempts int, now time.Time, limit int) ([]*models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.WebhookEvent
	for _, e := range s.events {
		if !retryable(e, maxAttempts, now) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RetryStats(ctx context.Context, maxAttempts int, now time.Time) (models.DeadLetterStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats models.DeadLetterStats
	for _, e := range s.events {
		if e.Status != models.EventFailed {
			continue
		}
		stats.Total++
		switch {
		case e.Attempts >= maxAttempts:
			stats.DeadLettered++
		case retryable(e, maxAttempts, now):
			stats.Pending++
		default:
			stats.Retrying++
		}
	}
	return stats, nil
}

func retryable(e *models.WebhookEvent, maxAttempts int, now time.Time) bool {
	if e.Status != models.EventFailed || e.Attempts >= maxAttempts {
		return false
	}
	return e.NextRetryAt == nil || !e.NextRetryAt.After(now)
}

func (s *MemoryStore) InsertPerf(ctx context.Context, entry *models.WebhookPerformanceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.perf = append(s.perf, &cp)
	return nil
}

func (s *MemoryStore) QueryPerf(ctx context.Context, start, end time.Time, platform string) ([]*models.WebhookPerformanceLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.WebhookPerformanceLog
	for _, p := range s.perf {
		if p.Timestamp.Before(start) || !p.Timestamp.Before(end) {
			continue
		}
		if platform != "" && p.Platform != platform {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) UpsertAlert(ctx context.Context, alert *models.WebhookAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.alerts {
		if !existing.Resolved && existing.Type == alert.Type && existing.Platform == alert.Platform {
			existing.CurrentValue = alert.CurrentValue
			existing.Severity = alert.Severity
			existing.Message = alert.Message
			return nil
		}
	}
	cp := *alert
	s.alerts[alert.ID] = &cp
	return nil
}

func (s *MemoryStore) ListActiveAlerts(ctx context.Context) ([]*models.WebhookAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.WebhookAlert
	for _, a := range s.alerts {
		if !a.Resolved {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ResolveAlert(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}
	if alert.Resolved {
		return nil
	}
	alert.Resolved = true
	alert.ResolvedAt = &at
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
