// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

/*
Package websocket streams threat alerts to connected dashboards.

The package uses gorilla/websocket with a hub-client architecture:

	┌──────────┐
	│   Hub    │ ← BroadcastJSON("threat_alert", event)
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│ Client1  │ Client2 │ Client3 │
	└──────────┴─────────┴─────────┘

Each client has two goroutines:
  - readPump: reads client messages, answers {"type":"ping"} with pong
  - writePump: writes queued messages and sends protocol pings

Message Types:

  - threat_alert: a detection.SecurityEvent at or above the alert threshold
  - pong: reply to a client ping

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	dispatcher.RegisterNotifier(detection.NewWebSocketNotifier(hub, true))

	// in the HTTP handler, after upgrading
	hub.Attach(conn)

Slow clients are disconnected rather than allowed to stall the hub. When the
broadcast buffer is full, BroadcastJSON drops the message and counts it under
websocket_errors_total{error_type="broadcast_full"}.
*/
package websocket
