// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

// Package validation validates API request parameters with
// go-playground/validator v10.
//
// A single validator instance is shared process-wide (it caches struct
// metadata). Failures convert to the API error envelope with code
// VALIDATION_ERROR:
//
//	type listRequest struct {
//	    Limit int `query:"limit" validate:"min=1,max=1000"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError() // Message: "limit must be at most 1000"
//	}
package validation
