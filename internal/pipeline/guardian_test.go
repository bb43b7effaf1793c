// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/tinyguardian/internal/detection"
	"github.com/tomtom215/tinyguardian/internal/metrics"
)

// mockAnalyzer returns assess(message) for each call.
type mockAnalyzer struct {
	pingErr error
	assess  func(ctx context.Context, message string) detection.Assessment
	calls   atomic.Int32
}

func (m *mockAnalyzer) Analyze(ctx context.Context, _, message string) detection.Assessment {
	m.calls.Add(1)
	if m.assess == nil {
		return detection.Assessment{ThreatLevel: detection.LevelNone, Explanation: "routine"}
	}
	return m.assess(ctx, message)
}

func (m *mockAnalyzer) Ping(context.Context) error { return m.pingErr }

// severityFromMessage rates "high" messages at 0.9 and everything else at 0.1.
func severityFromMessage(_ context.Context, message string) detection.Assessment {
	if strings.Contains(message, "high") {
		return detection.Assessment{ThreatLevel: detection.LevelHigh, Severity: 0.9, Explanation: "suspicious"}
	}
	return detection.Assessment{ThreatLevel: detection.LevelLow, Severity: 0.1, Explanation: "routine"}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.QueueSize = 16
	cfg.PollInterval = 10 * time.Millisecond
	return cfg
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func startGuardian(t *testing.T, a Analyzer, cfg Config) *Guardian {
	t.Helper()
	g := New(a, cfg)
	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		g.Stop()
		g.Wait()
	})
	return g
}

func TestGuardian_StartProbesBackend(t *testing.T) {
	probeErr := errors.New("connection refused")
	g := New(&mockAnalyzer{pingErr: probeErr}, fastConfig())

	err := g.Start(context.Background())
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if !errors.Is(err, probeErr) {
		t.Errorf("probe error should be wrapped, got %v", err)
	}
	if g.Running() {
		t.Error("guardian should not be running after failed probe")
	}
}

func TestGuardian_StartTwice(t *testing.T) {
	g := startGuardian(t, &mockAnalyzer{}, fastConfig())

	if err := g.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}
	if !g.Running() {
		t.Error("Running() = false")
	}
}

func TestGuardian_EnqueueAfterStop(t *testing.T) {
	g := startGuardian(t, &mockAnalyzer{}, fastConfig())
	g.Stop()
	g.Wait()

	if g.Running() {
		t.Error("Running() = true after Stop")
	}
	if err := g.Enqueue(RawLogRecord{DeviceID: "cam", Message: "x"}); !errors.Is(err, ErrStopped) {
		t.Errorf("Enqueue after Stop = %v, want ErrStopped", err)
	}
	if err := g.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Start after Stop = %v, want ErrStopped", err)
	}
}

func TestGuardian_QueueFullDrops(t *testing.T) {
	// Not started, so nothing drains the queue.
	g := New(&mockAnalyzer{}, Config{QueueSize: 2})

	before := testutil.ToFloat64(metrics.LogsDropped.WithLabelValues("queue_full"))
	for i := 0; i < 3; i++ {
		if err := g.Enqueue(RawLogRecord{DeviceID: "sensor_03", Message: "temp 21C"}); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
	}

	if g.QueueLen() != 2 {
		t.Errorf("QueueLen() = %d, want 2", g.QueueLen())
	}
	if delta := testutil.ToFloat64(metrics.LogsDropped.WithLabelValues("queue_full")) - before; delta != 1 {
		t.Errorf("dropped delta = %v, want 1", delta)
	}
}

func TestGuardian_ProcessesAndAlerts(t *testing.T) {
	g := startGuardian(t, &mockAnalyzer{assess: severityFromMessage}, fastConfig())

	var mu sync.Mutex
	var alerted []string
	g.RegisterAlertCallback("collector", func(_ context.Context, e *detection.SecurityEvent) error {
		mu.Lock()
		defer mu.Unlock()
		alerted = append(alerted, e.LogMessage)
		return nil
	})

	msgs := []string{"temp ok", "high: failed login from 10.0.0.5", "heartbeat"}
	for _, m := range msgs {
		if err := g.Enqueue(RawLogRecord{DeviceID: "door_lock_02", Message: m}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	waitFor(t, "three events", func() bool { return g.Stats().TotalEvents == 3 })

	stats := g.Stats()
	if stats.Alerts != 1 {
		t.Errorf("Stats().Alerts = %d, want 1", stats.Alerts)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(alerted) != 1 || alerted[0] != msgs[1] {
		t.Errorf("alert callback saw %v", alerted)
	}

	alerts := g.Alerts(10)
	if len(alerts) != 1 {
		t.Fatalf("Alerts() len = %d, want 1", len(alerts))
	}
	if alerts[0].SourceIP != "10.0.0.5" {
		t.Errorf("SourceIP = %q", alerts[0].SourceIP)
	}
	if alerts[0].ThreatType != detection.ThreatUnauthorizedAccess {
		t.Errorf("ThreatType = %s", alerts[0].ThreatType)
	}
}

func TestGuardian_EventStoredBeforeDispatch(t *testing.T) {
	g := startGuardian(t, &mockAnalyzer{assess: severityFromMessage}, fastConfig())

	seen := make(chan int, 1)
	g.RegisterAlertCallback("snapshot", func(_ context.Context, e *detection.SecurityEvent) error {
		seen <- len(g.RecentEvents(10))
		return nil
	})

	_ = g.Enqueue(RawLogRecord{DeviceID: "cam", Message: "high alert"})

	select {
	case n := <-seen:
		if n != 1 {
			t.Errorf("event log held %d events during dispatch, want 1", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestGuardian_UsesReceivedAtAsTimestamp(t *testing.T) {
	g := startGuardian(t, &mockAnalyzer{}, fastConfig())

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = g.Enqueue(RawLogRecord{DeviceID: "thermostat_04", Message: "set 21C", ReceivedAt: ts})

	waitFor(t, "one event", func() bool { return len(g.RecentEvents(1)) == 1 })

	e := g.RecentEvents(1)[0]
	if !e.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, ts)
	}
	if !strings.HasPrefix(e.EventID, "evt_1772366400_thermostat_04_") {
		t.Errorf("EventID = %q", e.EventID)
	}
}

func TestGuardian_BurstEscalation(t *testing.T) {
	g := startGuardian(t, &mockAnalyzer{assess: func(context.Context, string) detection.Assessment {
		return detection.Assessment{ThreatLevel: detection.LevelMedium, Severity: 0.5, Explanation: "repeated"}
	}}, fastConfig())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_ = g.Enqueue(RawLogRecord{
			DeviceID:   "door_lock_02",
			Message:    "Failed login attempt",
			ReceivedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	waitFor(t, "four events", func() bool { return g.Stats().TotalEvents == 4 })

	events := g.RecentEvents(4) // newest first
	if math.Abs(events[0].Severity-0.7) > 1e-9 {
		t.Errorf("4th event severity = %v, want 0.7", events[0].Severity)
	}
	for _, e := range events[1:] {
		if e.Severity != 0.5 {
			t.Errorf("event %s severity = %v, want 0.5", e.EventID, e.Severity)
		}
	}
	if g.Stats().Alerts != 1 {
		t.Errorf("Alerts = %d, want 1", g.Stats().Alerts)
	}
}

func TestGuardian_RecoversFromPanic(t *testing.T) {
	g := startGuardian(t, &mockAnalyzer{assess: func(_ context.Context, message string) detection.Assessment {
		if message == "boom" {
			panic("analyzer exploded")
		}
		return detection.Assessment{ThreatLevel: detection.LevelNone}
	}}, fastConfig())

	_ = g.Enqueue(RawLogRecord{DeviceID: "cam", Message: "boom"})
	_ = g.Enqueue(RawLogRecord{DeviceID: "cam", Message: "fine"})

	waitFor(t, "event after panic", func() bool { return g.Stats().TotalEvents == 1 })
	if !g.Running() {
		t.Error("guardian stopped after a panic")
	}
}

func TestGuardian_StopDiscardsPending(t *testing.T) {
	started := make(chan struct{}, 1)
	a := &mockAnalyzer{assess: func(ctx context.Context, _ string) detection.Assessment {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return detection.Assessment{}
	}}
	g := New(a, fastConfig())
	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 5; i++ {
		_ = g.Enqueue(RawLogRecord{DeviceID: "cam", Message: "pending"})
	}
	<-started

	g.Stop()
	g.Wait()

	if n := g.Stats().TotalEvents; n != 0 {
		t.Errorf("TotalEvents = %d after Stop, want 0", n)
	}
	if calls := a.calls.Load(); calls != 1 {
		t.Errorf("analyzer calls = %d, pending records should be discarded", calls)
	}
}

func TestGuardian_RunWithContext(t *testing.T) {
	g := New(&mockAnalyzer{}, fastConfig())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- g.RunWithContext(ctx) }()

	waitFor(t, "running", g.Running)
	_ = g.Enqueue(RawLogRecord{DeviceID: "cam", Message: "hello"})
	waitFor(t, "event", func() bool { return g.Stats().TotalEvents == 1 })

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("RunWithContext did not return")
	}
	if g.Running() {
		t.Error("Running() = true after RunWithContext returned")
	}
}

func TestGuardian_RunWithContextProbeFailure(t *testing.T) {
	g := New(&mockAnalyzer{pingErr: errors.New("down")}, fastConfig())
	if err := g.RunWithContext(context.Background()); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("RunWithContext() = %v, want ErrBackendUnavailable", err)
	}
}

func TestGuardian_ConcurrentEnqueue(t *testing.T) {
	cfg := fastConfig()
	cfg.QueueSize = 1000
	g := startGuardian(t, &mockAnalyzer{}, cfg)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if err := g.Enqueue(RawLogRecord{DeviceID: "sensor_03", Message: "reading"}); err != nil {
					t.Errorf("Enqueue: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	waitFor(t, "all events", func() bool { return g.Stats().TotalEvents == 200 })
}

func TestConfigDefaults(t *testing.T) {
	g := New(&mockAnalyzer{}, Config{SeverityThreshold: -1})
	if cap(g.queue) != DefaultQueueSize {
		t.Errorf("queue capacity = %d, want %d", cap(g.queue), DefaultQueueSize)
	}
	if g.pollInterval != DefaultPollInterval {
		t.Errorf("pollInterval = %v, want %v", g.pollInterval, DefaultPollInterval)
	}
	if g.classifier.Threshold() != detection.DefaultSeverityThreshold {
		t.Errorf("threshold = %v", g.classifier.Threshold())
	}
}

func TestConfig_SeverityThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"zero alerts on everything", 0, 0},
		{"negative takes default", -0.5, detection.DefaultSeverityThreshold},
		{"explicit value kept", 0.4, 0.4},
		{"default config", DefaultConfig().SeverityThreshold, detection.DefaultSeverityThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(&mockAnalyzer{}, Config{SeverityThreshold: tt.threshold})
			if got := g.classifier.Threshold(); got != tt.want {
				t.Errorf("Threshold() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuardian_ZeroThresholdAlertsOnEveryEvent(t *testing.T) {
	cfg := fastConfig()
	cfg.SeverityThreshold = 0
	g := startGuardian(t, &mockAnalyzer{assess: func(context.Context, string) detection.Assessment {
		return detection.Assessment{ThreatLevel: detection.LevelNone, Severity: 0, Explanation: "routine"}
	}}, cfg)

	_ = g.Enqueue(RawLogRecord{DeviceID: "sensor_03", Message: "temp 21C"})
	waitFor(t, "one alert", func() bool { return g.Stats().Alerts == 1 })

	if len(g.Alerts(10)) != 1 {
		t.Errorf("Alerts() len = %d, want 1", len(g.Alerts(10)))
	}
}
