// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/tinyguardian/internal/config"
	"github.com/tomtom215/tinyguardian/internal/detection"
	"github.com/tomtom215/tinyguardian/internal/logging"
	ws "github.com/tomtom215/tinyguardian/internal/websocket"
)

// EventSource is the query surface of the pipeline. *pipeline.Guardian
// implements it.
type EventSource interface {
	RecentEvents(limit int) []detection.SecurityEvent
	Alerts(limit int) []detection.SecurityEvent
	Stats() detection.Stats
	Running() bool
}

// Handler serves the REST and websocket endpoints.
type Handler struct {
	events EventSource
	wsHub  *ws.Hub
	config *config.Config
}

// NewHandler creates a Handler. A nil events source answers every query with
// empty results and reports monitoring=false; a nil hub disables /api/v1/ws.
func NewHandler(events EventSource, wsHub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		events: events,
		wsHub:  wsHub,
		config: cfg,
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow clients.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins against
// security.cors_origins.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Browsers always send Origin; accepting an empty one would bypass CORS.
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
