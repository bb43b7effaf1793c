// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package main

import (
	"math/rand/v2"
	"strings"
	"time"
)

var normalLogs = []string{
	"Device started successfully",
	"Temperature reading: 72.5°F",
	"Motion detected in zone 1",
	"Door locked",
	"Scheduled check-in completed",
}

var suspiciousLogs = []string{
	"Failed login attempt from 192.168.1.100",
	"Unauthorized access attempt detected",
	"Multiple failed authentication attempts",
	"Configuration changed without authorization",
	"Unusual network activity detected",
	"Connection from unknown IP: 10.0.0.50",
}

// logLine is one simulated device message.
type logLine struct {
	Device     string
	Subject    string
	Payload    string
	Suspicious bool
}

// generator picks a random device and log line per call.
type generator struct {
	devices         []string
	subjectPrefix   string
	suspiciousRatio float64
	rng             *rand.Rand
	now             func() time.Time
}

func newGenerator(devices []string, subjectPrefix string, suspiciousRatio float64, rng *rand.Rand) *generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &generator{
		devices:         devices,
		subjectPrefix:   strings.TrimSuffix(subjectPrefix, "."),
		suspiciousRatio: suspiciousRatio,
		rng:             rng,
		now:             time.Now,
	}
}

// next returns a line for <prefix>.<device>.logs formatted as
// "[<RFC3339 timestamp>] <log>".
func (g *generator) next() logLine {
	device := g.devices[g.rng.IntN(len(g.devices))]

	suspicious := g.rng.Float64() < g.suspiciousRatio
	pool := normalLogs
	if suspicious {
		pool = suspiciousLogs
	}
	text := pool[g.rng.IntN(len(pool))]

	return logLine{
		Device:     device,
		Subject:    g.subjectPrefix + "." + device + ".logs",
		Payload:    "[" + g.now().Format(time.RFC3339) + "] " + text,
		Suspicious: suspicious,
	}
}
