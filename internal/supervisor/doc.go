// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

/*
Package supervisor runs TinyGuardian's long-lived services under a suture v4
tree with Erlang-style restart and backoff.

	tinyguardian
	├── messaging-layer
	│   ├── nats-server       (nats.embedded_server)
	│   ├── nats-subscriber
	│   └── websocket-hub
	├── pipeline-layer
	│   ├── guardian
	│   └── event-archive     (archive.enabled)
	└── api-layer
	    └── http-server

Each layer counts failures independently, so a flapping subscriber backs off
without touching the HTTP API. Supervisor events are logged through
sutureslog on the slog bridge from internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(),
	    supervisor.TreeConfigFromSupervisor(&cfg.Supervisor))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddPipelineService(services.NewGuardianService(guardian, pipeline.ErrStopped, pipeline.ErrBackendUnavailable))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

Restart policy (defaults match suture):

	FailureThreshold  5     failures before backoff
	FailureDecay      30s   failure counter half-life
	FailureBackoff    15s   pause once the threshold is crossed
	ShutdownTimeout   10s   per-service stop deadline

Services still running after ShutdownTimeout are reported by
UnstoppedServiceReport and LogUnstopped.
*/
package supervisor
