// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

/*
Package metrics provides Prometheus metrics for the detection pipeline.

All metrics are registered on the default registry through promauto and
exposed by the API at /metrics:

	curl http://localhost:8000/metrics

# Available Metrics

Intake:
  - guardian_logs_received_total: log lines accepted into the queue (counter)
  - guardian_logs_dropped_total: log lines dropped before analysis (counter)
    Labels: reason (queue_full, stopped, empty_payload, invalid_encoding)
  - guardian_queue_depth: lines waiting for the consumer (gauge)

Analysis:
  - guardian_analysis_duration_seconds: inference latency (histogram)
    Labels: provider
  - guardian_analysis_errors_total: failed inference calls (counter)
  - guardian_analysis_fallbacks_total: responses read by keyword fallback (counter)

Detection:
  - guardian_events_classified_total: recorded events (counter)
    Labels: threat_type
  - guardian_alerts_total: events at or above the threshold (counter)
  - guardian_burst_escalations_total: severity bumps from repeated threats (counter)
  - guardian_alert_callback_errors_total: failed alert callbacks (counter)
  - guardian_notifications_total: notifier outcomes (counter)
    Labels: notifier, result

Circuit Breaker:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
  - circuit_breaker_requests_total: Labels: name, result
  - circuit_breaker_consecutive_failures (gauge)
  - circuit_breaker_state_transitions_total: Labels: name, from_state, to_state

API and WebSocket metrics follow the api_* and websocket_* prefixes.
*/
package metrics
