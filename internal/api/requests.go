// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package api

// Default page sizes when the client omits limit.
const (
	DefaultEventsLimit = 100
	DefaultAlertsLimit = 50
	MaxLimit           = 1000
)

// ListRequest holds the validated query parameters for the event and alert
// listings.
type ListRequest struct {
	Limit int `query:"limit" validate:"min=1,max=1000"`
}
