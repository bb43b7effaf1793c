// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

// Package main is the TinyGuardian server.
//
// TinyGuardian subscribes to IoT device log lines on NATS, asks a local LLM
// for a threat assessment of each line, classifies the result and raises
// alerts over the configured notifiers.
//
// # Startup
//
//  1. Configuration: koanf defaults, optional YAML, environment
//  2. Inference backend: selected by LLM_PROVIDER and probed; an unreachable
//     backend is fatal
//  3. NATS: optional embedded broker, then the intake subscriber (a broker
//     that is down is fatal) and the optional alert publisher
//  4. Alert observers: log, websocket, webhook, Discord, NATS, archive
//  5. HTTP API and websocket hub
//  6. Supervisor tree; blocks until SIGINT or SIGTERM
//
// # Example
//
//	export LLM_PROVIDER=ollama
//	export LLM_MODEL=phi3:mini
//	export NATS_EMBEDDED_SERVER=true
//	./tinyguardian
//
// Then run cmd/simulator against the same broker and watch
// http://localhost:8000/api/v1/alerts.
package main
