// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package detection

import (
	"context"

	"github.com/tomtom215/tinyguardian/internal/logging"
)

// LogNotifier writes one warn-level line per alert.
type LogNotifier struct {
	enabled bool
}

// NewLogNotifier creates a log notifier.
func NewLogNotifier(enabled bool) *LogNotifier {
	return &LogNotifier{enabled: enabled}
}

// Name returns the notifier name.
func (n *LogNotifier) Name() string { return "log" }

// Enabled returns whether this notifier is enabled.
func (n *LogNotifier) Enabled() bool { return n.enabled }

// Send logs the alert.
func (n *LogNotifier) Send(ctx context.Context, e *SecurityEvent) error {
	ev := logging.Ctx(ctx).Warn().
		Str("event_id", e.EventID).
		Str("device_id", e.DeviceID).
		Str("threat_type", string(e.ThreatType)).
		Str("threat_level", string(e.ThreatLevel)).
		Float64("severity", e.Severity).
		Str("recommendation", e.Recommendation)
	if e.SourceIP != "" {
		ev = ev.Str("source_ip", e.SourceIP)
	}
	if e.User != "" {
		ev = ev.Str("user", e.User)
	}
	ev.Msg("SECURITY ALERT")
	return nil
}
