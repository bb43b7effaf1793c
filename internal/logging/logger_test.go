// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, line)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	Info().Str("device_id", "sensor_03").Msg("log received")

	out := decodeLine(t, &buf)
	if out["message"] != "log received" {
		t.Errorf("message = %v, want %q", out["message"], "log received")
	}
	if out["device_id"] != "sensor_03" {
		t.Errorf("device_id = %v, want sensor_03", out["device_id"])
	}
	if _, ok := out["time"]; !ok {
		t.Error("expected time field")
	}
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	Init(Config{Level: "warn", Output: &buf})
	Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	Warn().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn should be written, got %q", buf.String())
	}
}

func TestCtx_AddsContextFields(t *testing.T) {
	buf := captureLogs(t)

	ctx := ContextWithCorrelationID(context.Background(), "abc12345")
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithDeviceID(ctx, "door_lock_02")

	Ctx(ctx).Info().Msg("classified")

	out := decodeLine(t, buf)
	if out["correlation_id"] != "abc12345" {
		t.Errorf("correlation_id = %v", out["correlation_id"])
	}
	if out["request_id"] != "req-1" {
		t.Errorf("request_id = %v", out["request_id"])
	}
	if out["device_id"] != "door_lock_02" {
		t.Errorf("device_id = %v", out["device_id"])
	}
}

func TestCtx_EmptyContext(t *testing.T) {
	buf := captureLogs(t)

	Ctx(context.Background()).Info().Msg("plain")

	out := decodeLine(t, buf)
	for _, key := range []string{"correlation_id", "request_id", "device_id"} {
		if _, ok := out[key]; ok {
			t.Errorf("unexpected %s field", key)
		}
	}
}

func TestGenerateIDs(t *testing.T) {
	if got := len(GenerateCorrelationID()); got != 8 {
		t.Errorf("correlation ID length = %d, want 8", got)
	}
	if GenerateRequestID() == GenerateRequestID() {
		t.Error("request IDs should be unique")
	}
	if id := CorrelationIDFromContext(ContextWithNewCorrelationID(context.Background())); id == "" {
		t.Error("expected generated correlation ID in context")
	}
}

func TestWithComponent(t *testing.T) {
	buf := captureLogs(t)

	l := WithComponent("consumer")
	l.Info().Msg("started")

	out := decodeLine(t, buf)
	if out["component"] != "consumer" {
		t.Errorf("component = %v, want consumer", out["component"])
	}
}

func TestSlogHandler(t *testing.T) {
	buf := captureLogs(t)

	logger := NewSlogLogger().With("service", "pipeline")
	logger.Warn("reconnected",
		slog.Group("nats", slog.String("url", "nats://127.0.0.1:4222")),
		slog.Int("attempt", 2))

	out := decodeLine(t, buf)
	if out["level"] != "warn" {
		t.Errorf("level = %v, want warn", out["level"])
	}
	if out["message"] != "reconnected" {
		t.Errorf("message = %v", out["message"])
	}
	if out["service"] != "pipeline" {
		t.Errorf("service = %v", out["service"])
	}
	if out["nats.url"] != "nats://127.0.0.1:4222" {
		t.Errorf("nats.url = %v", out["nats.url"])
	}
	if out["attempt"] != float64(2) {
		t.Errorf("attempt = %v", out["attempt"])
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	h := NewSlogHandler()
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
