// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package detection

import (
	"sort"
	"sync"
	"time"
)

// EventLog is the append-only in-memory store of every classified event.
// Readers get copies and never observe a partially appended event.
type EventLog struct {
	mu        sync.RWMutex
	events    []SecurityEvent
	alerts    []int // indexes into events
	threshold float64
	now       func() time.Time
}

// NewEventLog creates an EventLog. Events with severity >= threshold are alerts.
func NewEventLog(threshold float64) *EventLog {
	return &EventLog{threshold: threshold, now: time.Now}
}

// SetClock overrides the clock used for uptime. Call before use.
func (l *EventLog) SetClock(now func() time.Time) {
	l.now = now
}

// Append stores a copy of e.
func (l *EventLog) Append(e *SecurityEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, *e)
	if e.Severity >= l.threshold {
		l.alerts = append(l.alerts, len(l.events)-1)
	}
}

// Len returns the number of stored events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// RecentEvents returns up to limit events, newest first.
func (l *EventLog) RecentEvents(limit int) []SecurityEvent {
	if limit <= 0 {
		return []SecurityEvent{}
	}

	l.mu.RLock()
	out := make([]SecurityEvent, len(l.events))
	copy(out, l.events)
	l.mu.RUnlock()

	return newestFirst(out, limit)
}

// Alerts returns up to limit alert events, newest first.
func (l *EventLog) Alerts(limit int) []SecurityEvent {
	if limit <= 0 {
		return []SecurityEvent{}
	}

	l.mu.RLock()
	out := make([]SecurityEvent, 0, len(l.alerts))
	for _, i := range l.alerts {
		out = append(out, l.events[i])
	}
	l.mu.RUnlock()

	return newestFirst(out, limit)
}

// Stats summarizes the log. Uptime counts from the first stored event.
func (l *EventLog) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{
		TotalEvents: len(l.events),
		Alerts:      len(l.alerts),
		ThreatTypes: make(map[ThreatType]int),
	}
	for i := range l.events {
		stats.ThreatTypes[l.events[i].ThreatType]++
	}
	if len(l.events) > 0 {
		stats.UptimeSeconds = l.now().Sub(l.events[0].Timestamp).Seconds()
	}
	return stats
}

// newestFirst sorts events by timestamp descending and truncates to limit.
// Events with equal timestamps stay in append order.
func newestFirst(events []SecurityEvent, limit int) []SecurityEvent {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events
}
