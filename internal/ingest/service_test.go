package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgate-systems/leadgate/internal/dedup"
	"github.com/leadgate-systems/leadgate/internal/httputil"
	"github.com/leadgate-systems/leadgate/internal/mapper"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
	"github.com/leadgate-systems/leadgate/internal/store"
)

// capturePublisher records publishes; fail makes every publish error.
type capturePublisher struct {
	leads    []*models.Lead
	outcomes []dedup.Outcome
	fail     bool
}

func (p *capturePublisher) PublishLead(ctx context.Context, lead *models.Lead, outcome dedup.Outcome) error {
	if p.fail {
		return fmt.Errorf("nats unavailable")
	}
	p.leads = append(p.leads, lead)
	p.outcomes = append(p.outcomes, outcome)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *capturePublisher) {
	t.Helper()
	s := store.NewMemoryStore()
	pub := &capturePublisher{}
	svc := New(mapper.NewRegistry(), dedup.New(s), s, s, pub, nil)
	return svc, s, pub
}

// flatSubmission builds a landing-page form body with fake but
// deterministic lead data.
func flatSubmission(faker *gofakeit.Faker) ([]byte, string) {
	email := faker.Email()
	body := fmt.Sprintf(`{"email":%q,"first_name":%q,"last_name":%q,"phone":%q,"company":%q,"utm_source":"google","landing_page":"/pricing"}`,
		email, faker.FirstName(), faker.LastName(), faker.Phone(), faker.Company())
	return []byte(body), email
}

func TestHandleWebhook_CreatesLead(t *testing.T) {
	svc, s, pub := newTestService(t)
	ctx := context.Background()

	body, email := flatSubmission(gofakeit.New(1))
	resp, err := svc.HandleWebhook(ctx, platforms.LandingPage, body, httputil.RequestContext{IP: "203.0.113.9"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, models.ItemCreated, resp.Results[0].Status)
	assert.NotEmpty(t, resp.Results[0].LeadID)

	lead, err := s.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "landing-page", lead.Source)
	assert.Positive(t, lead.Score)

	// One SUCCESS event, processed timestamp set.
	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventSuccess, events[0].Status)
	assert.NotNil(t, events[0].ProcessedAt)

	// Audit trail and downstream publish.
	assert.Len(t, s.Activities(lead.ID), 1)
	require.Len(t, pub.outcomes, 1)
	assert.Equal(t, dedup.OutcomeCreated, pub.outcomes[0])
}

func TestHandleWebhook_DuplicateSubmission(t *testing.T) {
	svc, s, pub := newTestService(t)
	ctx := context.Background()

	body, email := flatSubmission(gofakeit.New(2))
	_, err := svc.HandleWebhook(ctx, platforms.LandingPage, body, httputil.RequestContext{})
	require.NoError(t, err)

	resp, err := svc.HandleWebhook(ctx, platforms.LandingPage, body, httputil.RequestContext{})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, models.ItemDuplicate, resp.Results[0].Status)

	lead, err := s.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, 1, lead.Metadata.DuplicateSubmissions)
	assert.Equal(t, dedup.OutcomeMerged, pub.outcomes[1])
}

func TestHandleWebhook_BatchIsolation(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	// Second change carries no email and must fail alone.
	body := []byte(`{"entry":[{"changes":[
		{"value":{"field_data":[{"name":"email","values":["good@example.com"]}]}},
		{"value":{"field_data":[{"name":"full_name","values":["No Email"]}]}}
	]}]}`)

	resp, err := svc.HandleWebhook(ctx, platforms.Facebook, body, httputil.RequestContext{})
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "processed 2 lead(s), 1 failed", resp.Message)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, models.ItemCreated, resp.Results[0].Status)
	assert.Equal(t, models.ItemFailed, resp.Results[1].Status)
	assert.NotEmpty(t, resp.Results[1].Error)

	// The good lead landed despite its sibling.
	_, err = s.GetByEmail(ctx, "good@example.com")
	require.NoError(t, err)

	// The failed item is queued with its bare payload and waits out the
	// first backoff before becoming eligible.
	now := time.Now().UTC()
	retryable, err := s.ListRetryable(ctx, 5, now, 10)
	require.NoError(t, err)
	assert.Empty(t, retryable, "fresh failure must not be eligible immediately")

	retryable, err = s.ListRetryable(ctx, 5, now.Add(3*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, models.EventFailed, retryable[0].Status)
	assert.Contains(t, retryable[0].LastError, "email not found")
}

func TestHandleWebhook_FirstRetryWaitsOutBackoff(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.HandleWebhook(ctx, platforms.Generic, []byte(`{"email":"not-an-email"}`), httputil.RequestContext{})
	require.NoError(t, err)
	assert.False(t, resp.Success)

	events := s.Events()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].NextRetryAt, "failed event carries its first retry time")
	assert.WithinDuration(t, events[0].CreatedAt.Add(2*time.Minute), *events[0].NextRetryAt, time.Second)
}

func TestHandleWebhook_InvalidJSON(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.HandleWebhook(ctx, platforms.Generic, []byte(`{not json`), httputil.RequestContext{})
	require.Error(t, err)

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventFailed, events[0].Status)
	assert.Contains(t, events[0].LastError, "invalid JSON")
	assert.True(t, json.Valid(events[0].Payload), "broken body must be stored wrapped in a JSON envelope")
	assert.Contains(t, string(events[0].Payload), "{not json")
	assert.NotNil(t, events[0].NextRetryAt)
}

func TestHandleWebhook_UnrecognizedShapeAcknowledged(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	// Platform verification pings and junk must not be retried forever.
	resp, err := svc.HandleWebhook(ctx, platforms.Facebook, []byte(`{"object":"page"}`), httputil.RequestContext{})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "no lead data found in payload", resp.Message)
	assert.Empty(t, resp.Results)
	assert.Empty(t, s.Events())
}

func TestHandleWebhook_PublishFailureIsBestEffort(t *testing.T) {
	svc, s, pub := newTestService(t)
	pub.fail = true
	ctx := context.Background()

	body, email := flatSubmission(gofakeit.New(3))
	resp, err := svc.HandleWebhook(ctx, platforms.LandingPage, body, httputil.RequestContext{})
	require.NoError(t, err)

	assert.True(t, resp.Success, "publish failures never fail the request")
	_, err = s.GetByEmail(ctx, email)
	require.NoError(t, err)
}

func TestReplay_ReingestsStoredPayload(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	event := &models.WebhookEvent{
		ID:       "e1",
		Type:     "lead.submission",
		Platform: "landing-page",
		Payload:  []byte(`{"email":"retry@example.com","name":"Retry Me"}`),
		Status:   models.EventFailed,
	}
	require.NoError(t, svc.Replay(ctx, event))

	lead, err := s.GetByEmail(ctx, "retry@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Retry", lead.FirstName)
}

func TestReplay_Failures(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		event *models.WebhookEvent
	}{
		{
			name:  "unknown platform",
			event: &models.WebhookEvent{ID: "e1", Platform: "myspace", Payload: []byte(`{"email":"a@b.com"}`)},
		},
		{
			name:  "corrupt payload",
			event: &models.WebhookEvent{ID: "e2", Platform: "facebook", Payload: []byte(`not json`)},
		},
		{
			name:  "no lead data",
			event: &models.WebhookEvent{ID: "e3", Platform: "facebook", Payload: []byte(`{"object":"page"}`)},
		},
		{
			name:  "invalid lead",
			event: &models.WebhookEvent{ID: "e4", Platform: "generic", Payload: []byte(`{"email":"not-an-email"}`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, svc.Replay(ctx, tt.event))
		})
	}
}
