// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Intake Metrics
	LogsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guardian_logs_received_total",
			Help: "Total number of log lines accepted into the intake queue",
		},
	)

	LogsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_logs_dropped_total",
			Help: "Total number of log lines dropped before analysis",
		},
		[]string{"reason"}, // "queue_full", "stopped", "empty_payload", "invalid_encoding"
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guardian_queue_depth",
			Help: "Current number of log lines waiting in the intake queue",
		},
	)

	// Analysis Metrics
	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guardian_analysis_duration_seconds",
			Help:    "Duration of inference backend calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60}, // Small local models are slow
		},
		[]string{"provider"},
	)

	AnalysisErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_analysis_errors_total",
			Help: "Total number of failed inference backend calls",
		},
		[]string{"provider"},
	)

	AnalysisFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guardian_analysis_fallbacks_total",
			Help: "Total number of model responses read by keyword fallback instead of JSON",
		},
	)

	// Detection Metrics
	EventsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_events_classified_total",
			Help: "Total number of security events recorded",
		},
		[]string{"threat_type"},
	)

	AlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_alerts_total",
			Help: "Total number of events at or above the severity threshold",
		},
		[]string{"threat_type"},
	)

	BurstEscalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guardian_burst_escalations_total",
			Help: "Total number of events whose severity was raised by repeated threats",
		},
	)

	CallbackErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_alert_callback_errors_total",
			Help: "Total number of alert callbacks that failed or panicked",
		},
		[]string{"callback"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_notifications_total",
			Help: "Total number of alert notifications by notifier and result",
		},
		[]string{"notifier", "result"}, // result: "success", "failure", "rate_limited"
	)

	// Archive Metrics
	ArchiveWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_archive_writes_total",
			Help: "Total number of alert archive writes",
		},
		[]string{"result"},
	)

	// NATS Metrics
	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guardian_nats_messages_consumed_total",
			Help: "Total number of log messages consumed from NATS",
		},
	)

	NATSAlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_nats_alerts_published_total",
			Help: "Total number of alerts republished to NATS",
		},
		[]string{"result"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordLogReceived records a log line entering the queue.
func RecordLogReceived() {
	LogsReceived.Inc()
}

// RecordLogDropped records a log line that never reached analysis.
func RecordLogDropped(reason string) {
	LogsDropped.WithLabelValues(reason).Inc()
}

// UpdateQueueDepth sets the intake queue depth gauge.
func UpdateQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

// RecordAnalysis records an inference call
func RecordAnalysis(provider string, duration time.Duration, err error) {
	AnalysisDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if err != nil {
		AnalysisErrors.WithLabelValues(provider).Inc()
	}
}

// RecordAnalysisFallback records a response that was not parseable JSON.
func RecordAnalysisFallback() {
	AnalysisFallbacks.Inc()
}

// RecordEvent records a classified event and whether it raised an alert.
func RecordEvent(threatType string, alert bool) {
	EventsClassified.WithLabelValues(threatType).Inc()
	if alert {
		AlertsRaised.WithLabelValues(threatType).Inc()
	}
}

// RecordBurstEscalation records a severity bump from repeated threats.
func RecordBurstEscalation() {
	BurstEscalations.Inc()
}

// RecordCallbackError records a failed or panicking alert callback.
func RecordCallbackError(callback string) {
	CallbackErrors.WithLabelValues(callback).Inc()
}

// RecordNotification records the outcome of a notifier send.
func RecordNotification(notifier, result string) {
	NotificationsSent.WithLabelValues(notifier, result).Inc()
}

// RecordArchiveWrite records an archive write outcome.
func RecordArchiveWrite(err error) {
	if err != nil {
		ArchiveWrites.WithLabelValues("failure").Inc()
		return
	}
	ArchiveWrites.WithLabelValues("success").Inc()
}

// RecordNATSConsume records a consumed log message.
func RecordNATSConsume() {
	NATSMessagesConsumed.Inc()
}

// RecordNATSAlertPublish records an alert republish outcome.
func RecordNATSAlertPublish(err error) {
	if err != nil {
		NATSAlertsPublished.WithLabelValues("failure").Inc()
		return
	}
	NATSAlertsPublished.WithLabelValues("success").Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
