// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package api

import (
	"net/http"

	"github.com/tomtom215/tinyguardian/internal/detection"
	"github.com/tomtom215/tinyguardian/internal/logging"
)

// Events returns the most recent events, newest first.
//
// GET /api/v1/events?limit=100
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	req, apiErr := parseListRequest(r, DefaultEventsLimit)
	if apiErr != nil {
		respondError(w, r, http.StatusBadRequest, *apiErr, nil)
		return
	}

	events := []detection.SecurityEvent{}
	if h.events != nil {
		events = h.events.RecentEvents(req.Limit)
	}

	respondJSON(w, http.StatusOK, &EventsResponse{Events: events, Count: len(events)})
}

// Alerts returns the most recent events at or above the alert threshold,
// newest first.
//
// GET /api/v1/alerts?limit=50
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	req, apiErr := parseListRequest(r, DefaultAlertsLimit)
	if apiErr != nil {
		respondError(w, r, http.StatusBadRequest, *apiErr, nil)
		return
	}

	alerts := []detection.SecurityEvent{}
	if h.events != nil {
		alerts = h.events.Alerts(req.Limit)
	}

	respondJSON(w, http.StatusOK, &AlertsResponse{Alerts: alerts, Count: len(alerts)})
}

// Stats returns event totals, alert count, per-type counts and uptime.
//
// GET /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := detection.Stats{ThreatTypes: map[detection.ThreatType]int{}}
	if h.events != nil {
		stats = h.events.Stats()
	}
	respondJSON(w, http.StatusOK, &stats)
}

// Health reports liveness and whether the pipeline is consuming logs.
//
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &HealthResponse{
		Status:     "healthy",
		Monitoring: h.events != nil && h.events.Running(),
	})
}

// WebSocket upgrades the connection and streams threat_alert messages.
//
// GET /api/v1/ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, r, http.StatusServiceUnavailable, APIError{
			Code:    ErrCodeServiceUnavailable,
			Message: "WebSocket service unavailable",
		}, nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	if !h.wsHub.Attach(conn) {
		logging.Ctx(r.Context()).Warn().Msg("WebSocket connection closed: hub stopped")
	}
}
