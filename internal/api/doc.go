// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

/*
Package api provides the TinyGuardian HTTP surface on the chi router.

Endpoints:

	GET /health              {"status":"healthy","monitoring":bool}
	GET /metrics             Prometheus exposition
	GET /api/v1/events       {"events":[...],"count":n}  limit 1..1000, default 100
	GET /api/v1/alerts       {"alerts":[...],"count":n}  limit 1..1000, default 50
	GET /api/v1/stats        {"total_events","alerts","threat_types","uptime_seconds"}
	GET /api/v1/ws           websocket stream of threat_alert messages

Listings are newest first. An invalid limit returns 400 with the error
envelope:

	{"status":"error","error":{"code":"VALIDATION_ERROR","message":"limit must be at most 1000",...},"metadata":{...}}

Middleware stack, outermost first: request id and logging context, RealIP,
Recoverer, CORS (go-chi/cors), Prometheus instrumentation. Routes under
/api/v1 are additionally rate limited per client IP (go-chi/httprate).

Usage:

	handler := api.NewHandler(guardian, hub, cfg)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)))
	srv := &http.Server{Addr: ":8000", Handler: router.SetupChi()}
*/
package api
