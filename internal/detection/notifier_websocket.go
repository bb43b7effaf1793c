// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package detection

import "context"

// AlertMessageType is the websocket message type for alerts.
const AlertMessageType = "threat_alert"

// Broadcaster is implemented by the websocket hub.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// WebSocketNotifier pushes alerts to connected websocket clients.
type WebSocketNotifier struct {
	hub     Broadcaster
	enabled bool
}

// NewWebSocketNotifier creates a websocket notifier on hub.
func NewWebSocketNotifier(hub Broadcaster, enabled bool) *WebSocketNotifier {
	return &WebSocketNotifier{hub: hub, enabled: enabled}
}

// Name returns the notifier name.
func (n *WebSocketNotifier) Name() string { return "websocket" }

// Enabled returns whether this notifier is enabled.
func (n *WebSocketNotifier) Enabled() bool { return n.enabled && n.hub != nil }

// Send broadcasts a copy of the event. The hub drops messages for slow clients.
func (n *WebSocketNotifier) Send(_ context.Context, e *SecurityEvent) error {
	event := *e
	n.hub.BroadcastJSON(AlertMessageType, &event)
	return nil
}
