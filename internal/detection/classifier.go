// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package detection

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tomtom215/tinyguardian/internal/metrics"
)

const (
	// DefaultWindow is the per-device burst window.
	DefaultWindow = 5 * time.Minute

	// DefaultSeverityThreshold is the inclusive alert threshold.
	DefaultSeverityThreshold = 0.7

	// burstCount is how many prior same-type events in the window trigger escalation.
	burstCount = 3

	burstBump = 0.2
)

// keywordGroup maps a set of substrings to a threat type.
type keywordGroup struct {
	threat   ThreatType
	keywords []string
}

// Auth failures are checked first; they become brute force when burst words appear too.
var (
	authFailureKeywords = []string{"failed login", "authentication failed", "invalid password"}
	burstKeywords       = []string{"multiple", "repeated", "brute"}
)

// Order matters: the first matching group wins.
var keywordGroups = []keywordGroup{
	{ThreatUnauthorizedAccess, []string{"unauthorized", "access denied", "permission denied"}},
	{ThreatNetworkAnomaly, []string{"network", "connection", "socket", "port scan"}},
	{ThreatConfigurationChange, []string{"config", "setting", "configuration changed"}},
	{ThreatDataExfiltration, []string{"data", "export", "download", "exfiltrat"}},
	{ThreatMalware, []string{"malware", "virus", "trojan", "ransomware"}},
	{ThreatDenialOfService, []string{"dos", "ddos", "denial", "overload"}},
}

var (
	ipPattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

	userPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)user[=:]\s*(\w+)`),
		regexp.MustCompile(`(?i)username[=:]\s*(\w+)`),
		regexp.MustCompile(`(?i)login[=:]\s*(\w+)`),
	}
)

// ClassifierConfig configures a Classifier.
type ClassifierConfig struct {
	// Window is the trailing period for burst counting (default: 5m).
	Window time.Duration

	// SeverityThreshold is the inclusive alert threshold (default: 0.7).
	SeverityThreshold float64

	// Now overrides the clock used when Classify gets a zero timestamp.
	Now func() time.Time
}

type windowEntry struct {
	timestamp  time.Time
	threatType ThreatType
}

// Classifier builds SecurityEvents from assessments and tracks per-device
// burst windows. It is not safe for concurrent use; the pipeline consumer
// owns it.
type Classifier struct {
	window    time.Duration
	threshold float64
	now       func() time.Time

	windows map[string][]windowEntry
	seq     atomic.Uint64
}

// NewClassifier creates a Classifier, filling zero config fields with defaults.
// A zero SeverityThreshold is kept as is.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Classifier{
		window:    cfg.Window,
		threshold: cfg.SeverityThreshold,
		now:       cfg.Now,
		windows:   make(map[string][]windowEntry),
	}
}

// Classify builds the event for one analyzed log line. A zero ts means now.
func (c *Classifier) Classify(deviceID, logText string, a Assessment, ts time.Time) *SecurityEvent {
	if ts.IsZero() {
		ts = c.now()
	}

	threatType := DetermineThreatType(logText, a.Explanation)
	severity := ClampSeverity(a.Severity)

	cutoff := ts.Add(-c.window)
	if c.countRecent(deviceID, threatType, cutoff) >= burstCount {
		severity = ClampSeverity(severity + burstBump)
		metrics.RecordBurstEscalation()
	}

	event := &SecurityEvent{
		EventID:        c.nextID(ts, deviceID),
		DeviceID:       deviceID,
		Timestamp:      ts,
		LogMessage:     logText,
		ThreatLevel:    a.ThreatLevel,
		Severity:       severity,
		ThreatType:     threatType,
		Explanation:    a.Explanation,
		Recommendation: a.Recommendation,
		SourceIP:       ExtractSourceIP(logText),
		User:           ExtractUser(logText),
	}

	c.record(deviceID, windowEntry{timestamp: ts, threatType: threatType}, cutoff)
	return event
}

// IsAlert reports whether the event reaches the alert threshold.
func (c *Classifier) IsAlert(e *SecurityEvent) bool {
	return e.Severity >= c.threshold
}

// Threshold returns the alert threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Window returns the burst-detection window.
func (c *Classifier) Window() time.Duration {
	return c.window
}

// WindowSize returns how many events the device window currently holds.
func (c *Classifier) WindowSize(deviceID string) int {
	return len(c.windows[deviceID])
}

func (c *Classifier) countRecent(deviceID string, threatType ThreatType, cutoff time.Time) int {
	n := 0
	for _, e := range c.windows[deviceID] {
		if e.threatType == threatType && !e.timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}

// record appends the entry and drops everything strictly older than cutoff.
func (c *Classifier) record(deviceID string, entry windowEntry, cutoff time.Time) {
	entries := append(c.windows[deviceID], entry)

	kept := entries[:0]
	for _, e := range entries {
		if !e.timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	c.windows[deviceID] = kept
}

func (c *Classifier) nextID(ts time.Time, deviceID string) string {
	return fmt.Sprintf("evt_%d_%s_%d", ts.Unix(), deviceID, c.seq.Add(1))
}

// DetermineThreatType picks the threat type from the log text and explanation.
func DetermineThreatType(logText, explanation string) ThreatType {
	combined := strings.ToLower(logText) + " " + strings.ToLower(explanation)

	if containsAny(combined, authFailureKeywords) {
		if containsAny(combined, burstKeywords) {
			return ThreatBruteForce
		}
		return ThreatUnauthorizedAccess
	}

	for _, g := range keywordGroups {
		if containsAny(combined, g.keywords) {
			return g.threat
		}
	}
	return ThreatUnknown
}

// ExtractSourceIP returns the first IPv4-shaped token. Octet ranges are not checked.
func ExtractSourceIP(logText string) string {
	return ipPattern.FindString(logText)
}

// ExtractUser returns the first user name found by the user, username, login patterns.
func ExtractUser(logText string) string {
	for _, p := range userPatterns {
		if m := p.FindStringSubmatch(logText); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
