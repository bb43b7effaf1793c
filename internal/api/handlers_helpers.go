// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tinyguardian/internal/logging"
	"github.com/tomtom215/tinyguardian/internal/validation"
)

// sanitizeLogValue escapes control characters so request data cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON writes v as JSON. Event data changes constantly, so responses
// are never cached.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError sends the error envelope. err, when set, is logged but never
// sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, apiErr APIError, err error) {
	requestID := ""
	if r != nil {
		requestID = logging.RequestIDFromContext(r.Context())
	}

	if err != nil {
		logging.Error().
			Str("code", sanitizeLogValue(apiErr.Code)).
			Str("request_id", requestID).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API Error")
	}

	respondJSON(w, status, &ErrorResponse{
		Status: "error",
		Error:  apiErr,
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: requestID,
		},
	})
}

// validateRequest validates v and converts failures to an APIError.
func validateRequest(v interface{}) *APIError {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return nil
	}

	apiErr := verr.ToAPIError()
	return &APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// parseListRequest reads and validates ?limit=. A missing limit uses
// defaultLimit; anything that is not an integer in [1, MaxLimit] is rejected.
func parseListRequest(r *http.Request, defaultLimit int) (ListRequest, *APIError) {
	req := ListRequest{Limit: defaultLimit}

	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, &APIError{
				Code:    ErrCodeValidation,
				Message: "limit must be an integer",
				Details: map[string]interface{}{"field": "limit", "value": sanitizeLogValue(raw)},
			}
		}
		req.Limit = n
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		return req, apiErr
	}
	return req, nil
}
