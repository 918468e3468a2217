package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook ingestion metrics
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgate_webhooks_received_total",
			Help: "Total number of webhook requests received",
		},
		[]string{"platform"},
	)

	LeadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgate_leads_created_total",
			Help: "Total number of new leads created",
		},
		[]string{"platform"},
	)

	LeadsMerged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgate_leads_merged_total",
			Help: "Total number of duplicate submissions merged into existing leads",
		},
		[]string{"platform"},
	)

	ItemsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgate_items_failed_total",
			Help: "Total number of lead payloads that failed processing",
		},
		[]string{"platform"},
	)

	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadgate_processing_duration_seconds",
			Help:    "Duration of webhook request processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	// Security gate metrics
	GateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgate_gate_rejections_total",
			Help: "Total number of requests rejected by the security gate",
		},
		[]string{"platform", "reason"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgate_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"key"},
	)

	// Retry subsystem metrics
	RetrySweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadgate_retry_sweeps_total",
			Help: "Total number of retry sweeps executed",
		},
	)

	RetrySuccesses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadgate_retry_successes_total",
			Help: "Total number of events recovered by retry",
		},
	)

	RetryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadgate_retry_failures_total",
			Help: "Total number of retry attempts that failed again",
		},
	)

	DeadLetterEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadgate_dead_letter_events",
			Help: "Current number of dead-lettered webhook events",
		},
	)

	// Downstream publishing metrics
	PublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadgate_publish_failures_total",
			Help: "Total number of failed downstream event publishes",
		},
	)
)
