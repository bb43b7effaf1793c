// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

// Package testinfra holds container-backed fixtures for integration tests.
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/testinfra/...
//
// OllamaContainer runs a real Ollama server (testcontainers-go) with a small
// model pulled, so the generate backend, the normalizer and the full pipeline
// can be exercised against actual model output rather than canned strings.
// MockWebhookServer captures notifier deliveries.
//
// Tests skip when Docker is unavailable. The first run downloads the image
// and the model.
package testinfra
