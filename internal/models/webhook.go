package models

import (
	"encoding/json"
	"time"
)

// EventStatus is the delivery state of a webhook event.
type EventStatus string

const (
	EventSuccess EventStatus = "SUCCESS"
	EventFailed  EventStatus = "FAILED"
)

// WebhookEvent records one inbound delivery attempt. It doubles as the
// retry-queue substrate: FAILED events below the attempt cap are replayed
// by the sweeper, exhausted ones stay queryable as dead letters.
type WebhookEvent struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Platform    string          `json:"platform"`
	Payload     json.RawMessage `json:"payload"`
	Status      EventStatus     `json:"status"`
	Attempts    int             `json:"attempts"`
	LastError   string          `json:"last_error,omitempty"`
	NextRetryAt *time.Time      `json:"next_retry_at,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// WebhookPerformanceLog is one append-only performance sample per request.
type WebhookPerformanceLog struct {
	ID             string         `json:"id"`
	Platform       string         `json:"platform"`
	Endpoint       string         `json:"endpoint"`
	Method         string         `json:"method"`
	StatusCode     int            `json:"status_code"`
	ProcessingTime int64          `json:"processing_time_ms"`
	PayloadSize    int            `json:"payload_size"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// AlertType classifies threshold alerts raised over performance logs.
type AlertType string

const (
	AlertErrorRate       AlertType = "ERROR_RATE"
	AlertProcessingTime  AlertType = "PROCESSING_TIME"
	AlertVolumeSpike     AlertType = "VOLUME_SPIKE"
	AlertDeadLetterQueue AlertType = "DEAD_LETTER_QUEUE"
)

// AlertSeverity orders alerts for the health verdict.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// WebhookAlert is a threshold breach. Only resolution mutates it.
type WebhookAlert struct {
	ID           string        `json:"id"`
	Type         AlertType     `json:"type"`
	Severity     AlertSeverity `json:"severity"`
	Platform     string        `json:"platform,omitempty"`
	Message      string        `json:"message"`
	Threshold    float64       `json:"threshold"`
	CurrentValue float64       `json:"current_value"`
	Resolved     bool          `json:"resolved"`
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Per-item processing outcome inside one webhook request.
const (
	ItemCreated   = "created"
	ItemDuplicate = "duplicate"
	ItemFailed    = "failed"
)

// ItemResult is the outcome of one lead payload within a batch.
type ItemResult struct {
	Status string `json:"status"`
	Email  string `json:"email,omitempty"`
	LeadID string `json:"lead_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WebhookResponse is the success envelope returned to platforms. The HTTP
// status stays 200 for mixed batches; callers inspect Results.
type WebhookResponse struct {
	Success        bool         `json:"success"`
	Message        string       `json:"message"`
	Results        []ItemResult `json:"results,omitempty"`
	ProcessingTime int64        `json:"processingTime"`
}

// ErrorResponse is the failure envelope for 4xx/5xx answers.
type ErrorResponse struct {
	Error          string `json:"error"`
	ProcessingTime int64  `json:"processingTime,omitempty"`
}

// DeadLetterStats summarizes the retry queue for operators.
type DeadLetterStats struct {
	Pending      int `json:"pending"`
	Retrying     int `json:"retrying"`
	DeadLettered int `json:"dead_lettered"`
	Total        int `json:"total"`
}

// WebhookMetrics is the aggregate view computed from performance logs.
type WebhookMetrics struct {
	TotalRequests     int                        `json:"total_requests"`
	SuccessRate       float64                    `json:"success_rate"`
	ErrorRate         float64                    `json:"error_rate"`
	AvgProcessingTime float64                    `json:"avg_processing_time_ms"`
	ByPlatform        map[string]PlatformMetrics `json:"by_platform"`
	RecentErrors      []WebhookPerformanceLog    `json:"recent_errors"`
	Hourly            []HourlyBucket             `json:"hourly"`
}

// PlatformMetrics is the per-platform slice of WebhookMetrics.
type PlatformMetrics struct {
	Requests          int     `json:"requests"`
	Errors            int     `json:"errors"`
	AvgProcessingTime float64 `json:"avg_processing_time_ms"`
}

// HourlyBucket aggregates one hour of traffic, ascending by Hour.
type HourlyBucket struct {
	Hour              time.Time `json:"hour"`
	Requests          int       `json:"requests"`
	Errors            int       `json:"errors"`
	AvgProcessingTime float64   `json:"avg_processing_time_ms"`
}

// HealthState is the tri-state verdict exposed to operators.
type HealthState string

const (
	HealthHealthy  HealthState = "HEALTHY"
	HealthWarning  HealthState = "WARNING"
	HealthCritical HealthState = "CRITICAL"
)

// HealthStatus composes recent metrics and active alerts.
type HealthStatus struct {
	Status       HealthState    `json:"status"`
	Uptime       float64        `json:"uptime"`
	LastHour     WebhookMetrics `json:"last_hour"`
	Last24Hours  WebhookMetrics `json:"last_24_hours"`
	ActiveAlerts []WebhookAlert `json:"active_alerts"`
	GeneratedAt  time.Time      `json:"generated_at"`
}
