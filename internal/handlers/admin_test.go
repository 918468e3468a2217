package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgate-systems/leadgate/internal/analytics"
	"github.com/leadgate-systems/leadgate/internal/dedup"
	"github.com/leadgate-systems/leadgate/internal/ingest"
	"github.com/leadgate-systems/leadgate/internal/mapper"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/retry"
	"github.com/leadgate-systems/leadgate/internal/store"
)

const testAPIKey = "test-admin-key"

func newAdminMux(t *testing.T) (*http.ServeMux, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	svc := ingest.New(mapper.NewRegistry(), dedup.New(s), s, s, nil, nil)
	sweeper := retry.NewSweeper(s, svc, nil, retry.Options{})
	h := NewAdminHandler(sweeper, analytics.New(s, s, nil), testAPIKey, nil)

	mux := http.NewServeMux()
	h.Register(mux)
	return mux, s
}

func adminRequest(method, url string, body []byte) *http.Request {
	r := httptest.NewRequest(method, url, bytes.NewReader(body))
	r.Header.Set("x-api-key", testAPIKey)
	return r
}

func TestAdmin_RequiresAPIKey(t *testing.T) {
	mux, _ := newAdminMux(t)

	for _, url := range []string{"/webhooks/process-retries", "/webhooks/analytics"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "missing key on %s", url)

		w = httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, url, nil)
		r.Header.Set("x-api-key", "wrong")
		mux.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "wrong key on %s", url)
	}
}

func TestAdmin_ProcessRetries(t *testing.T) {
	mux, s := newAdminMux(t)
	ctx := context.Background()

	// One replayable event that will succeed on sweep.
	require.NoError(t, s.CreateEvent(ctx, &models.WebhookEvent{
		ID:        "e1",
		Type:      "lead.submission",
		Platform:  "generic",
		Payload:   []byte(`{"email":"retry@example.com"}`),
		Status:    models.EventFailed,
		Attempts:  1,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(http.MethodPost, "/webhooks/process-retries", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var result retry.SweepResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, retry.SweepResult{Scanned: 1, Succeeded: 1}, result)

	_, err := s.GetByEmail(ctx, "retry@example.com")
	require.NoError(t, err)

	// GET reports queue stats.
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(http.MethodGet, "/webhooks/process-retries", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.DeadLetterStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Total)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(http.MethodDelete, "/webhooks/process-retries", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAdmin_AnalyticsViews(t *testing.T) {
	mux, s := newAdminMux(t)
	ctx := context.Background()

	require.NoError(t, s.InsertPerf(ctx, &models.WebhookPerformanceLog{
		ID:         "p1",
		Platform:   "facebook",
		StatusCode: 200,
		Timestamp:  time.Now().UTC().Add(-time.Minute),
	}))

	t.Run("metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(http.MethodGet, "/webhooks/analytics?action=metrics&hours=1", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var m models.WebhookMetrics
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
		assert.Equal(t, 1, m.TotalRequests)
	})

	t.Run("metrics is the default action", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(http.MethodGet, "/webhooks/analytics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("alerts", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(http.MethodGet, "/webhooks/analytics?action=alerts", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "alerts")
	})

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(http.MethodGet, "/webhooks/analytics?action=health", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var h models.HealthStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
		assert.Equal(t, models.HealthHealthy, h.Status)
	})

	t.Run("unknown action", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(http.MethodGet, "/webhooks/analytics?action=bogus", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdmin_ResolveAlert(t *testing.T) {
	mux, s := newAdminMux(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAlert(ctx, &models.WebhookAlert{
		ID:       "alert-1",
		Type:     models.AlertErrorRate,
		Severity: models.SeverityHigh,
	}))

	t.Run("resolves open alert", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(http.MethodPost, "/webhooks/analytics?action=resolve_alert", []byte(`{"alert_id":"alert-1"}`)))
		require.Equal(t, http.StatusOK, w.Code)

		active, err := s.ListActiveAlerts(ctx)
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("unknown alert", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(http.MethodPost, "/webhooks/analytics?action=resolve_alert", []byte(`{"alert_id":"nope"}`)))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing alert_id", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(http.MethodPost, "/webhooks/analytics?action=resolve_alert", []byte(`{}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown post action", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(http.MethodPost, "/webhooks/analytics?action=explode", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
