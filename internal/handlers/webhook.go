// Package handlers exposes the webhook and admin HTTP surface.
package handlers

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/leadgate-systems/leadgate/internal/analytics"
	"github.com/leadgate-systems/leadgate/internal/httputil"
	"github.com/leadgate-systems/leadgate/internal/ingest"
	"github.com/leadgate-systems/leadgate/internal/logging"
	"github.com/leadgate-systems/leadgate/internal/metrics"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
	"github.com/leadgate-systems/leadgate/internal/security"
)

// maxBodyBytes bounds inbound webhook payloads.
const maxBodyBytes = 1 << 20

// GateConfig carries the security-gate toggles applied to every platform
// route. Secrets are resolved per platform from the environment variable
// the platform registry names.
type GateConfig struct {
	CheckSignature bool
	CheckTimestamp bool
	CheckRateLimit bool
	Tolerance      time.Duration
}

// WebhookHandler serves one POST route per platform plus the Meta GET
// verification handshake.
type WebhookHandler struct {
	service   *ingest.Service
	gate      *security.Gate
	analytics *analytics.Service
	cfg       GateConfig
	logger    *logging.Logger

	// secretFromEnv is swappable in tests.
	secretFromEnv func(name string) string
}

// NewWebhookHandler wires the webhook routes.
func NewWebhookHandler(service *ingest.Service, gate *security.Gate, analytics *analytics.Service, cfg GateConfig, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		service:       service,
		gate:          gate,
		analytics:     analytics,
		cfg:           cfg,
		logger:        logger,
		secretFromEnv: os.Getenv,
	}
}

// Register mounts one route per platform under /webhooks/.
func (h *WebhookHandler) Register(mux *http.ServeMux) {
	for _, p := range platforms.All() {
		cfg, _ := platforms.Lookup(p)
		mux.HandleFunc("/webhooks/"+cfg.Slug, h.handlerFor(p, cfg))
	}
}

func (h *WebhookHandler) handlerFor(platform platforms.Platform, cfg platforms.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if cfg.MetaVerify {
				h.handleMetaVerify(w, r, platform, cfg)
				return
			}
			httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		case http.MethodPost:
			h.handleWebhook(w, r, platform, cfg)
		default:
			httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

// handleMetaVerify answers Meta's subscription handshake: echo
// hub.challenge when the verify token matches the secret configured for
// this route's platform, 403 otherwise. Facebook and Instagram carry
// separate secrets, so one platform's token never verifies the other.
func (h *WebhookHandler) handleMetaVerify(w http.ResponseWriter, r *http.Request, platform platforms.Platform, cfg platforms.Config) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && security.CompareAPIKey(token, h.secretFromEnv(cfg.SecretEnv)) && challenge != "" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, challenge)
		return
	}

	h.logger.WarnContext(r.Context(), "webhook verification rejected",
		logging.Platform(string(platform)))
	httputil.WriteError(w, http.StatusForbidden, "verification failed")
}

func (h *WebhookHandler) handleWebhook(w http.ResponseWriter, r *http.Request, platform platforms.Platform, cfg platforms.Config) {
	ctx := r.Context()
	start := time.Now()

	statusCode := http.StatusOK
	errMsg := ""
	bodySize := 0
	defer func() {
		h.logPerformance(r, platform, statusCode, bodySize, errMsg, time.Since(start))
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		statusCode, errMsg = http.StatusBadRequest, "failed to read request body"
		httputil.WriteJSON(w, statusCode, models.ErrorResponse{
			Error:          errMsg,
			ProcessingTime: time.Since(start).Milliseconds(),
		})
		return
	}
	bodySize = len(body)

	clientIP := httputil.GetClientIP(r)
	result, err := h.gate.Validate(ctx, body, r.Header, clientIP, security.Options{
		Platform:        platform,
		Secret:          []byte(h.secretFromEnv(cfg.SecretEnv)),
		SignatureHeader: cfg.SignatureHeader,
		TimestampHeader: cfg.TimestampHeader,
		CheckSignature:  h.cfg.CheckSignature,
		CheckTimestamp:  h.cfg.CheckTimestamp,
		CheckRateLimit:  h.cfg.CheckRateLimit,
		Tolerance:       h.cfg.Tolerance,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "security gate error",
			logging.Platform(string(platform)),
			logging.Error(err))
		statusCode, errMsg = http.StatusInternalServerError, "internal server error"
		httputil.WriteJSON(w, statusCode, models.ErrorResponse{
			Error:          errMsg,
			ProcessingTime: time.Since(start).Milliseconds(),
		})
		return
	}
	if result.RateLimited {
		metrics.GateRejections.WithLabelValues(string(platform), "rate_limited").Inc()
		statusCode, errMsg = http.StatusTooManyRequests, "rate limit exceeded"
		httputil.WriteJSON(w, statusCode, models.ErrorResponse{
			Error:          errMsg,
			ProcessingTime: time.Since(start).Milliseconds(),
		})
		return
	}
	if !result.Valid {
		metrics.GateRejections.WithLabelValues(string(platform), result.Reason).Inc()
		h.logger.WarnContext(ctx, "webhook rejected",
			logging.Platform(string(platform)),
			logging.IP(clientIP),
			logging.Reason(result.Reason))
		statusCode, errMsg = http.StatusUnauthorized, "unauthorized"
		httputil.WriteJSON(w, statusCode, models.ErrorResponse{
			Error:          errMsg,
			ProcessingTime: time.Since(start).Milliseconds(),
		})
		return
	}

	rctx := httputil.NewRequestContext(r)
	resp, err := h.service.HandleWebhook(ctx, platform, body, rctx)
	if err != nil {
		statusCode, errMsg = http.StatusBadRequest, "invalid payload"
		httputil.WriteJSON(w, statusCode, models.ErrorResponse{
			Error:          errMsg,
			ProcessingTime: time.Since(start).Milliseconds(),
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// logPerformance records the request sample for analytics and alerting.
func (h *WebhookHandler) logPerformance(r *http.Request, platform platforms.Platform, statusCode, bodySize int, errMsg string, elapsed time.Duration) {
	if h.analytics == nil {
		return
	}
	entry := &models.WebhookPerformanceLog{
		Platform:       string(platform),
		Endpoint:       r.URL.Path,
		Method:         r.Method,
		StatusCode:     statusCode,
		ProcessingTime: elapsed.Milliseconds(),
		PayloadSize:    bodySize,
		ErrorMessage:   errMsg,
	}
	if err := h.analytics.LogPerformance(r.Context(), entry); err != nil {
		h.logger.WarnContext(r.Context(), "failed to record performance log",
			logging.Platform(string(platform)),
			logging.Error(err))
	}
}
