// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

//go:build integration

package testinfra

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// WebhookCapture is one received request.
type WebhookCapture struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
}

// Decode unmarshals the captured body into v.
func (c WebhookCapture) Decode(v interface{}) error {
	return json.Unmarshal(c.Body, v)
}

// MockWebhookServer records every request sent to it. Used for the webhook
// and Discord notifiers.
type MockWebhookServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	captures []WebhookCapture
	status   int
}

// NewMockWebhookServer starts a server answering status (200 when zero).
// It is closed by t.Cleanup.
func NewMockWebhookServer(t *testing.T, status int) *MockWebhookServer {
	t.Helper()
	if status == 0 {
		status = http.StatusOK
	}

	m := &MockWebhookServer{status: status}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()

		m.mu.Lock()
		m.captures = append(m.captures, WebhookCapture{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: r.Header.Clone(),
			Body:    body,
		})
		m.mu.Unlock()

		w.WriteHeader(m.status)
	}))
	t.Cleanup(m.server.Close)
	return m
}

// URL returns the server URL.
func (m *MockWebhookServer) URL() string {
	return m.server.URL
}

// Captures returns a copy of the received requests.
func (m *MockWebhookServer) Captures() []WebhookCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WebhookCapture, len(m.captures))
	copy(out, m.captures)
	return out
}

// WaitForCaptures polls until n requests arrived or timeout passes.
func (m *MockWebhookServer) WaitForCaptures(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		count := len(m.captures)
		m.mu.Unlock()
		if count >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(20 * time.Millisecond)
	}
}
