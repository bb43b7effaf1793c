// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package api

import (
	"time"

	"github.com/tomtom215/tinyguardian/internal/detection"
)

// Error codes used in ErrorResponse.
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimited        = "RATE_LIMITED"
)

// ErrorResponse is the envelope for every non-2xx response.
type ErrorResponse struct {
	Status   string   `json:"status"`
	Error    APIError `json:"error"`
	Metadata Metadata `json:"metadata"`
}

// APIError represents an error response.
type APIError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	Details map[string]interface{} `json:"details,omitempty"`
}

// Metadata accompanies error responses.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// EventsResponse is returned by GET /api/v1/events.
type EventsResponse struct {
	Events []detection.SecurityEvent `json:"events"`
	Count  int                       `json:"count"`
}

// AlertsResponse is returned by GET /api/v1/alerts.
type AlertsResponse struct {
	Alerts []detection.SecurityEvent `json:"alerts"`
	Count  int                       `json:"count"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Monitoring bool   `json:"monitoring"`
}
