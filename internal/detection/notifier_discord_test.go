// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package detection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewDiscordNotifier_DefaultRateLimit(t *testing.T) {
	notifier := NewDiscordNotifier(DiscordConfig{
		WebhookURL: "https://discord.com/api/webhooks/test",
		Enabled:    true,
	})

	if notifier.rateLimit != time.Second {
		t.Errorf("rateLimit = %v, want 1s", notifier.rateLimit)
	}
	if notifier.Name() != "discord" {
		t.Errorf("Name() = %q, want discord", notifier.Name())
	}
}

func TestDiscordNotifier_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		config   DiscordConfig
		expected bool
	}{
		{"enabled with URL", DiscordConfig{WebhookURL: "https://discord.com/api/webhooks/test", Enabled: true}, true},
		{"disabled", DiscordConfig{WebhookURL: "https://discord.com/api/webhooks/test"}, false},
		{"enabled but no URL", DiscordConfig{Enabled: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewDiscordNotifier(tt.config).Enabled(); got != tt.expected {
				t.Errorf("Enabled() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDiscordNotifier_SetWebhookURL(t *testing.T) {
	notifier := NewDiscordNotifier(DiscordConfig{Enabled: true})
	if notifier.Enabled() {
		t.Fatal("should be disabled without URL")
	}

	notifier.SetWebhookURL("https://discord.com/api/webhooks/new")
	if !notifier.Enabled() {
		t.Error("should be enabled once a URL is set")
	}
}

func TestDiscordNotifier_Send_Success(t *testing.T) {
	var receivedPayload discordWebhookPayload
	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&receivedPayload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(DiscordConfig{
		WebhookURL: server.URL,
		Enabled:    true,
		RateLimit:  10 * time.Millisecond,
	})

	if err := notifier.Send(context.Background(), testAlertEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if atomic.LoadInt32(&requestCount) != 1 {
		t.Errorf("expected 1 request, got %d", requestCount)
	}
	if len(receivedPayload.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(receivedPayload.Embeds))
	}
	embed := receivedPayload.Embeds[0]
	if embed.Title != "Threat detected on door_lock_02" {
		t.Errorf("embed title = %q", embed.Title)
	}
	if embed.Description != "Repeated authentication failures" {
		t.Errorf("embed description = %q", embed.Description)
	}
}

func TestDiscordNotifier_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(DiscordConfig{
		WebhookURL: server.URL,
		Enabled:    true,
		RateLimit:  10 * time.Millisecond,
	})

	if err := notifier.Send(context.Background(), testAlertEvent()); err == nil {
		t.Error("expected error for 500 status")
	}
}

func TestLevelColor(t *testing.T) {
	tests := []struct {
		level    ThreatLevel
		expected int
	}{
		{LevelCritical, 0x8B0000},
		{LevelHigh, 0xFF0000},
		{LevelMedium, 0xFFA500},
		{LevelLow, 0x3498DB},
		{LevelUnknown, 0x95A5A6},
		{LevelNone, 0x95A5A6},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := levelColor(tt.level); got != tt.expected {
				t.Errorf("levelColor(%q) = 0x%X, want 0x%X", tt.level, got, tt.expected)
			}
		})
	}
}

func TestBuildEmbed(t *testing.T) {
	embed := buildEmbed(testAlertEvent())

	if embed.Color != 0xFF0000 {
		t.Errorf("Color = 0x%X, want 0xFF0000", embed.Color)
	}
	if embed.Footer.Text != "TinyGuardian" {
		t.Errorf("Footer = %q", embed.Footer.Text)
	}
	if embed.Timestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("Timestamp = %q", embed.Timestamp)
	}

	want := map[string]string{
		"Device":         "door_lock_02",
		"Threat":         "brute_force",
		"Severity":       "0.90",
		"Source IP":      "203.0.113.7",
		"User":           "admin",
		"Recommendation": "Block the source address",
	}
	got := make(map[string]string)
	for _, f := range embed.Fields {
		got[f.Name] = f.Value
	}
	for name, value := range want {
		if got[name] != value {
			t.Errorf("field %q = %q, want %q", name, got[name], value)
		}
	}
}

func TestBuildEmbed_NoOptionalFields(t *testing.T) {
	e := testAlertEvent()
	e.SourceIP = ""
	e.User = ""
	e.Recommendation = ""

	embed := buildEmbed(e)
	if len(embed.Fields) != 3 {
		t.Errorf("expected 3 fields, got %d", len(embed.Fields))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	long := strings.Repeat("é", 20)
	got := truncate(long, 10)
	if len([]rune(got)) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate long = %q", got)
	}
}

func TestDiscordNotifier_RateLimiting(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(DiscordConfig{
		WebhookURL: server.URL,
		Enabled:    true,
		RateLimit:  100 * time.Millisecond,
	})

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := notifier.Send(context.Background(), testAlertEvent()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	elapsed := time.Since(start)

	if atomic.LoadInt32(&requestCount) != 2 {
		t.Fatalf("expected 2 requests, got %d", requestCount)
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("rate limiting not working: elapsed = %v, expected >= 80ms", elapsed)
	}
}
