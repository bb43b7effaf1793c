// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/tinyguardian/internal/config"
	"github.com/tomtom215/tinyguardian/internal/detection"
	ws "github.com/tomtom215/tinyguardian/internal/websocket"
)

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	server := newTestServer(nil)

	tests := []struct {
		method   string
		target   string
		wantCode int
		wantErr  string
	}{
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound, ErrCodeNotFound},
		{http.MethodPost, "/api/v1/events", http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
		{http.MethodDelete, "/health", http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp ErrorResponse
			decode(t, rec, &resp)
			if resp.Error.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantErr)
			}
		})
	}
}

func TestRouter_RateLimit(t *testing.T) {
	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	})
	server := NewRouter(NewHandler(nil, nil, nil), mw).SetupChi()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, doGet(t, server, "/api/v1/stats").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [200 200 429]", codes)
	}

	rec := doGet(t, server, "/api/v1/events")
	var resp ErrorResponse
	decode(t, rec, &resp)
	if resp.Error.Code != ErrCodeRateLimited {
		t.Errorf("code = %q", resp.Error.Code)
	}

	// Health and metrics sit outside the limited group.
	if code := doGet(t, server, "/health").Code; code != http.StatusOK {
		t.Errorf("/health status = %d", code)
	}
}

func TestRouter_RateLimitDisabled(t *testing.T) {
	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		RateLimitRequests: 1,
		RateLimitWindow:   time.Minute,
		RateLimitDisabled: true,
	})
	server := NewRouter(NewHandler(nil, nil, nil), mw).SetupChi()

	for i := 0; i < 5; i++ {
		if code := doGet(t, server, "/api/v1/stats").Code; code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, code)
		}
	}
}

func TestRouter_RequestID(t *testing.T) {
	server := newTestServer(nil)

	rec := doGet(t, server, "/health")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("response should carry a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-from-proxy")
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "req-from-proxy" {
		t.Errorf("request id = %q, want the upstream one", got)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	cfg := &config.SecurityConfig{
		CORSOrigins:       []string{"https://dashboard.example"},
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
	server := NewRouter(NewHandler(nil, nil, nil), NewChiMiddleware(ChiMiddlewareConfigFromSecurity(cfg))).SetupChi()

	tests := []struct {
		origin    string
		wantAllow string
	}{
		{"https://dashboard.example", "https://dashboard.example"},
		{"https://evil.example", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/events", nil)
		req.Header.Set("Origin", tt.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
			t.Errorf("origin %s: Allow-Origin = %q, want %q", tt.origin, got, tt.wantAllow)
		}
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	server := newTestServer(nil)
	_ = doGet(t, server, "/api/v1/stats")

	rec := doGet(t, server, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"api_requests_total", "guardian_logs_received_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %s", want)
		}
	}
}

// startWebSocketServer runs the full router with a live hub.
func startWebSocketServer(t *testing.T, cfg *config.Config) (*httptest.Server, *ws.Hub) {
	t.Helper()
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()

	server := httptest.NewServer(NewRouter(NewHandler(nil, hub, cfg), nil).SetupChi())
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return server, hub
}

func dial(server *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/v1/ws", header)
}

func TestWebSocket_StreamsThreatAlerts(t *testing.T) {
	server, hub := startWebSocketServer(t, nil)

	conn, resp, err := dial(server, "http://localhost")
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for hub.GetClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	notifier := detection.NewWebSocketNotifier(hub, true)
	event := &detection.SecurityEvent{
		EventID:    "evt_1772366400_door_lock_02_1",
		DeviceID:   "door_lock_02",
		Severity:   0.9,
		ThreatType: detection.ThreatBruteForce,
	}
	if err := notifier.Send(context.Background(), event); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string                  `json:"type"`
		Data detection.SecurityEvent `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Type != ws.MessageTypeThreatAlert || msg.Data.EventID != event.EventID {
		t.Errorf("message = %+v", msg)
	}
}

func TestWebSocket_OriginCheck(t *testing.T) {
	cfg := &config.Config{Security: config.SecurityConfig{
		CORSOrigins:       []string{"https://dashboard.example"},
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}}
	server, _ := startWebSocketServer(t, cfg)

	tests := []struct {
		name     string
		origin   string
		wantOpen bool
	}{
		{"allowed", "https://dashboard.example", true},
		{"other origin", "https://evil.example", false},
		{"missing origin", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dial(server, tt.origin)
			if resp != nil && resp.Body != nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
			if tt.wantOpen {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				conn.Close()
				return
			}
			if err == nil {
				conn.Close()
				t.Fatal("expected handshake to be rejected")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %v, want 403", resp)
			}
		})
	}
}
