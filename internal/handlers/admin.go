package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/leadgate-systems/leadgate/internal/analytics"
	"github.com/leadgate-systems/leadgate/internal/httputil"
	"github.com/leadgate-systems/leadgate/internal/logging"
	"github.com/leadgate-systems/leadgate/internal/retry"
	"github.com/leadgate-systems/leadgate/internal/security"
	"github.com/leadgate-systems/leadgate/internal/store"
)

// AdminHandler serves the operational endpoints: retry sweeps, queue
// stats, analytics views and alert resolution. Every route requires the
// configured x-api-key.
type AdminHandler struct {
	sweeper   *retry.Sweeper
	analytics *analytics.Service
	apiKey    string
	logger    *logging.Logger
}

// NewAdminHandler wires the admin routes.
func NewAdminHandler(sweeper *retry.Sweeper, analyticsSvc *analytics.Service, apiKey string, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{
		sweeper:   sweeper,
		analytics: analyticsSvc,
		apiKey:    apiKey,
		logger:    logger,
	}
}

// Register mounts the admin routes.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/webhooks/process-retries", h.withAPIKey(h.handleRetries))
	mux.HandleFunc("/webhooks/analytics", h.withAPIKey(h.handleAnalytics))
}

// withAPIKey rejects requests without the configured API key. A missing
// server-side key rejects everything rather than opening the endpoints.
func (h *AdminHandler) withAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !security.CompareAPIKey(r.Header.Get("x-api-key"), h.apiKey) {
			h.logger.WarnContext(r.Context(), "admin request rejected",
				logging.Path(r.URL.Path),
				logging.IP(httputil.GetClientIP(r)))
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// handleRetries runs a sweep on POST and reports queue stats on GET.
func (h *AdminHandler) handleRetries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		result, err := h.sweeper.Sweep(r.Context())
		if err != nil {
			h.logger.ErrorContext(r.Context(), "retry sweep failed", logging.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "sweep failed")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, result)
	case http.MethodGet:
		stats, err := h.sweeper.Stats(r.Context())
		if err != nil {
			h.logger.ErrorContext(r.Context(), "retry stats failed", logging.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "stats unavailable")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, stats)
	default:
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleAnalytics dispatches on the action query parameter: GET serves
// metrics, alerts and health; POST resolves an alert.
func (h *AdminHandler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleAnalyticsGet(w, r)
	case http.MethodPost:
		h.handleAnalyticsPost(w, r)
	default:
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AdminHandler) handleAnalyticsGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch action := q.Get("action"); action {
	case "metrics", "":
		hours := httputil.ParseIntParam(q.Get("hours"), 24)
		end := time.Now().UTC()
		start := end.Add(-time.Duration(hours) * time.Hour)
		m, err := h.analytics.Metrics(r.Context(), start, end, q.Get("platform"))
		if err != nil {
			h.logger.ErrorContext(r.Context(), "metrics query failed", logging.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "metrics unavailable")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, m)
	case "alerts":
		alerts, err := h.analytics.ActiveAlerts(r.Context())
		if err != nil {
			h.logger.ErrorContext(r.Context(), "alert query failed", logging.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "alerts unavailable")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
	case "health":
		health, err := h.analytics.Health(r.Context())
		if err != nil {
			h.logger.ErrorContext(r.Context(), "health query failed", logging.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "health unavailable")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, health)
	default:
		httputil.WriteError(w, http.StatusBadRequest, "unknown action: "+action)
	}
}

func (h *AdminHandler) handleAnalyticsPost(w http.ResponseWriter, r *http.Request) {
	if action := r.URL.Query().Get("action"); action != "resolve_alert" {
		httputil.WriteError(w, http.StatusBadRequest, "unknown action: "+action)
		return
	}

	var req struct {
		AlertID string `json:"alert_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AlertID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "alert_id is required")
		return
	}

	if err := h.analytics.ResolveAlert(r.Context(), req.AlertID); err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "alert not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "alert resolution failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to resolve alert")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "resolved", "alert_id": req.AlertID})
}
