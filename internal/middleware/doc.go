// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

/*
Package middleware provides HTTP middleware shared by the API router.

PrometheusMetrics instruments every request:

  - api_requests_total{method, endpoint, status_code}
  - api_request_duration_seconds{method, endpoint}
  - api_active_requests

The endpoint label is the matched chi route pattern (for example
/api/v1/events), so query strings and unknown paths cannot grow the label set.
Mount it inside a chi router:

	r := chi.NewRouter()
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
