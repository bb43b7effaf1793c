// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package detection

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func appendEvents(l *EventLog, severities ...float64) {
	for i, s := range severities {
		l.Append(&SecurityEvent{
			EventID:    fmt.Sprintf("evt_%d", i),
			DeviceID:   "sensor_03",
			Timestamp:  baseTime.Add(time.Duration(i) * time.Second),
			Severity:   s,
			ThreatType: ThreatNetworkAnomaly,
		})
	}
}

func TestEventLog_RecentEvents(t *testing.T) {
	l := NewEventLog(0.7)
	appendEvents(l, 0.1, 0.2, 0.3, 0.4, 0.5)

	got := l.RecentEvents(3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"evt_4", "evt_3", "evt_2"} {
		if got[i].EventID != want {
			t.Errorf("got[%d] = %s, want %s", i, got[i].EventID, want)
		}
	}

	if all := l.RecentEvents(100); len(all) != 5 {
		t.Errorf("len = %d, want 5", len(all))
	}
}

func TestEventLog_NonPositiveLimit(t *testing.T) {
	l := NewEventLog(0.7)
	appendEvents(l, 0.9)

	for _, limit := range []int{0, -1} {
		if got := l.RecentEvents(limit); got == nil || len(got) != 0 {
			t.Errorf("RecentEvents(%d) = %v, want empty non-nil slice", limit, got)
		}
		if got := l.Alerts(limit); got == nil || len(got) != 0 {
			t.Errorf("Alerts(%d) = %v, want empty non-nil slice", limit, got)
		}
	}
}

func TestEventLog_OrdersByTimestampNotInsertion(t *testing.T) {
	l := NewEventLog(0.7)
	l.Append(&SecurityEvent{EventID: "late", Timestamp: baseTime.Add(time.Minute)})
	l.Append(&SecurityEvent{EventID: "early", Timestamp: baseTime})

	got := l.RecentEvents(2)
	if got[0].EventID != "late" || got[1].EventID != "early" {
		t.Errorf("order = %s, %s", got[0].EventID, got[1].EventID)
	}
}

func TestEventLog_EqualTimestampsKeepAppendOrder(t *testing.T) {
	l := NewEventLog(0.5)
	l.Append(&SecurityEvent{EventID: "first", Timestamp: baseTime, Severity: 0.9})
	l.Append(&SecurityEvent{EventID: "second", Timestamp: baseTime, Severity: 0.9})
	l.Append(&SecurityEvent{EventID: "older", Timestamp: baseTime.Add(-time.Second), Severity: 0.9})

	for name, got := range map[string][]SecurityEvent{
		"RecentEvents": l.RecentEvents(10),
		"Alerts":       l.Alerts(10),
	} {
		var ids []string
		for _, e := range got {
			ids = append(ids, e.EventID)
		}
		if fmt.Sprint(ids) != "[first second older]" {
			t.Errorf("%s order = %v, want [first second older]", name, ids)
		}
	}
}

func TestEventLog_Alerts(t *testing.T) {
	l := NewEventLog(0.7)
	appendEvents(l, 0.2, 0.7, 0.69, 0.95, 1.0)

	got := l.Alerts(50)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"evt_4", "evt_3", "evt_1"} {
		if got[i].EventID != want {
			t.Errorf("got[%d] = %s, want %s", i, got[i].EventID, want)
		}
	}
	for _, e := range got {
		if e.Severity < 0.7 {
			t.Errorf("alert below threshold: %v", e.Severity)
		}
	}
}

func TestEventLog_ReturnsCopies(t *testing.T) {
	l := NewEventLog(0.7)
	appendEvents(l, 0.9)

	got := l.RecentEvents(1)
	got[0].DeviceID = "tampered"

	if again := l.RecentEvents(1); again[0].DeviceID != "sensor_03" {
		t.Errorf("stored event modified through returned slice: %q", again[0].DeviceID)
	}
}

func TestEventLog_Stats(t *testing.T) {
	l := NewEventLog(0.7)
	l.now = func() time.Time { return baseTime.Add(90 * time.Second) }

	if s := l.Stats(); s.TotalEvents != 0 || s.UptimeSeconds != 0 || s.ThreatTypes == nil {
		t.Errorf("empty stats = %+v", s)
	}

	l.Append(&SecurityEvent{Timestamp: baseTime, Severity: 0.9, ThreatType: ThreatBruteForce})
	l.Append(&SecurityEvent{Timestamp: baseTime.Add(time.Second), Severity: 0.1, ThreatType: ThreatUnknown})
	l.Append(&SecurityEvent{Timestamp: baseTime.Add(2 * time.Second), Severity: 0.8, ThreatType: ThreatBruteForce})

	s := l.Stats()
	if s.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d", s.TotalEvents)
	}
	if s.Alerts != 2 {
		t.Errorf("Alerts = %d", s.Alerts)
	}
	if s.ThreatTypes[ThreatBruteForce] != 2 || s.ThreatTypes[ThreatUnknown] != 1 {
		t.Errorf("ThreatTypes = %v", s.ThreatTypes)
	}
	if s.UptimeSeconds != 90 {
		t.Errorf("UptimeSeconds = %v, want 90", s.UptimeSeconds)
	}
	if l.Len() != 3 {
		t.Errorf("Len = %d", l.Len())
	}
}

func TestEventLog_ConcurrentReadWrite(t *testing.T) {
	l := NewEventLog(0.5)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			l.Append(&SecurityEvent{EventID: fmt.Sprint(i), Timestamp: baseTime, Severity: float64(i%2) * 0.9})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = l.RecentEvents(10)
				_ = l.Alerts(10)
				_ = l.Stats()
			}
		}()
	}
	wg.Wait()

	if l.Len() != 500 {
		t.Errorf("Len = %d, want 500", l.Len())
	}
	if s := l.Stats(); s.Alerts != 250 {
		t.Errorf("Alerts = %d, want 250", s.Alerts)
	}
}
