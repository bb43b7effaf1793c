// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/tinyguardian/internal/transport"
)

var devices = []string{"smart_camera_01", "door_lock_02", "sensor_03", "thermostat_04"}

var payloadPattern = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(Z|[+-]\d{2}:\d{2})\] .+$`)

func TestGenerator_Format(t *testing.T) {
	gen := newGenerator(devices, "iot.devices.", 0.2, rand.New(rand.NewPCG(1, 2)))
	gen.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	for i := 0; i < 50; i++ {
		line := gen.next()
		if !slices.Contains(devices, line.Device) {
			t.Fatalf("device = %q", line.Device)
		}
		if want := "iot.devices." + line.Device + ".logs"; line.Subject != want {
			t.Errorf("subject = %q, want %q", line.Subject, want)
		}
		if !strings.HasPrefix(line.Payload, "[2026-03-01T12:00:00Z] ") {
			t.Errorf("payload = %q", line.Payload)
		}
		if transport.DeviceIDFromTopic(line.Subject) != line.Device {
			t.Errorf("guardian would read device %q from %q", transport.DeviceIDFromTopic(line.Subject), line.Subject)
		}
	}
}

func TestGenerator_SuspiciousRatio(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		check func(t *testing.T, suspicious, total int)
	}{
		{"never", 0, func(t *testing.T, s, _ int) {
			if s != 0 {
				t.Errorf("suspicious = %d, want 0", s)
			}
		}},
		{"always", 1, func(t *testing.T, s, n int) {
			if s != n {
				t.Errorf("suspicious = %d, want %d", s, n)
			}
		}},
		{"default fifth", 0.2, func(t *testing.T, s, n int) {
			if frac := float64(s) / float64(n); frac < 0.15 || frac > 0.25 {
				t.Errorf("suspicious fraction = %.3f, want about 0.2", frac)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newGenerator(devices, "iot.devices", tt.ratio, rand.New(rand.NewPCG(42, 7)))
			const n = 5000
			suspicious := 0
			for i := 0; i < n; i++ {
				line := gen.next()
				if line.Suspicious {
					suspicious++
					if !containsSuffix(line.Payload, suspiciousLogs) {
						t.Fatalf("suspicious line from normal pool: %q", line.Payload)
					}
				} else if !containsSuffix(line.Payload, normalLogs) {
					t.Fatalf("normal line from suspicious pool: %q", line.Payload)
				}
			}
			tt.check(t, suspicious, n)
		})
	}
}

func containsSuffix(s string, pool []string) bool {
	for _, p := range pool {
		if strings.HasSuffix(s, "] "+p) {
			return true
		}
	}
	return false
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (r *recordingPublisher) Publish(subject string, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.subjects = append(r.subjects, subject)
	return nil
}

func TestSimulate_StopsOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	gen := newGenerator(devices, "iot.devices", 0.2, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	n, err := simulate(ctx, pub, gen, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if n < 2 || n != len(pub.subjects) {
		t.Errorf("published = %d, recorded = %d", n, len(pub.subjects))
	}
}

func TestSimulate_PublishError(t *testing.T) {
	pubErr := errors.New("nats: connection closed")
	n, err := simulate(context.Background(), &recordingPublisher{err: pubErr}, newGenerator(devices, "iot.devices", 0, nil), time.Millisecond)
	if !errors.Is(err, pubErr) || n != 0 {
		t.Errorf("simulate() = %d, %v", n, err)
	}
}

func TestSimulate_ThroughEmbeddedBroker(t *testing.T) {
	server, err := transport.NewEmbeddedServer(transport.ServerConfig{Host: "127.0.0.1", Port: -1, Quiet: true})
	if err != nil {
		t.Fatalf("NewEmbeddedServer: %v", err)
	}
	defer server.Shutdown(context.Background()) //nolint:errcheck

	nc, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	received := make(chan *nats.Msg, 16)
	sub, err := nc.ChanSubscribe("iot.devices.*.logs", received)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // publish exactly one line
	if _, err := simulate(ctx, nc, newGenerator(devices, "iot.devices", 0.2, nil), time.Second); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	select {
	case msg := <-received:
		if !payloadPattern.Match(msg.Data) {
			t.Errorf("payload = %q", msg.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
