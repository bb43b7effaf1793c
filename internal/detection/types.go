// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package detection

import (
	"context"
	"math"
	"time"
)

// ThreatType identifies the category of a security event.
type ThreatType string

const (
	ThreatUnauthorizedAccess  ThreatType = "unauthorized_access"
	ThreatBruteForce          ThreatType = "brute_force"
	ThreatNetworkAnomaly      ThreatType = "network_anomaly"
	ThreatConfigurationChange ThreatType = "configuration_change"
	ThreatDataExfiltration    ThreatType = "data_exfiltration"
	ThreatMalware             ThreatType = "malware"
	ThreatDenialOfService     ThreatType = "denial_of_service"
	ThreatUnknown             ThreatType = "unknown"
)

// ThreatLevel is the model's coarse rating of a log line.
type ThreatLevel string

const (
	LevelNone     ThreatLevel = "none"
	LevelLow      ThreatLevel = "low"
	LevelMedium   ThreatLevel = "medium"
	LevelHigh     ThreatLevel = "high"
	LevelCritical ThreatLevel = "critical"
	LevelUnknown  ThreatLevel = "unknown"
)

// ParseThreatLevel maps s onto the level vocabulary; anything else is LevelUnknown.
// The caller is expected to lower-case s.
func ParseThreatLevel(s string) ThreatLevel {
	switch l := ThreatLevel(s); l {
	case LevelNone, LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return l
	default:
		return LevelUnknown
	}
}

// Assessment is the normalized model output for one log line.
type Assessment struct {
	ThreatLevel    ThreatLevel `json:"threat_level"`
	Severity       float64     `json:"severity"`
	Explanation    string      `json:"explanation"`
	Recommendation string      `json:"recommendation"`
}

// SecurityEvent is a classified log line. Immutable once appended to the EventLog.
type SecurityEvent struct {
	EventID        string      `json:"event_id"`
	DeviceID       string      `json:"device_id"`
	Timestamp      time.Time   `json:"timestamp"`
	LogMessage     string      `json:"log_message"`
	ThreatLevel    ThreatLevel `json:"threat_level"`
	Severity       float64     `json:"severity"`
	ThreatType     ThreatType  `json:"threat_type"`
	Explanation    string      `json:"explanation"`
	Recommendation string      `json:"recommendation"`
	SourceIP       string      `json:"source_ip,omitempty"`
	User           string      `json:"user,omitempty"`
}

// Stats summarizes the event log.
type Stats struct {
	TotalEvents   int                `json:"total_events"`
	Alerts        int                `json:"alerts"`
	ThreatTypes   map[ThreatType]int `json:"threat_types"`
	UptimeSeconds float64            `json:"uptime_seconds"`
}

// AlertCallback observes an alert. Errors are logged by the Dispatcher.
type AlertCallback func(ctx context.Context, event *SecurityEvent) error

// Notifier is implemented by alert delivery channels.
type Notifier interface {
	// Send delivers an alert to the notification channel.
	Send(ctx context.Context, event *SecurityEvent) error

	// Name returns the notifier name (e.g., "discord", "webhook").
	Name() string

	// Enabled returns whether this notifier is enabled.
	Enabled() bool
}

// ClampSeverity limits s to [0, 1]. NaN becomes 0.
func ClampSeverity(s float64) float64 {
	switch {
	case math.IsNaN(s), s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
