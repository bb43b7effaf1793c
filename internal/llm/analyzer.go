// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tinyguardian/internal/detection"
	"github.com/tomtom215/tinyguardian/internal/logging"
	"github.com/tomtom215/tinyguardian/internal/metrics"
)

// Analyzer asks a Backend about one log line at a time.
type Analyzer struct {
	backend Backend
}

// NewAnalyzer creates an Analyzer on backend.
func NewAnalyzer(backend Backend) *Analyzer {
	return &Analyzer{backend: backend}
}

// Backend returns the underlying backend.
func (a *Analyzer) Backend() Backend {
	return a.backend
}

// Ping checks the backend.
func (a *Analyzer) Ping(ctx context.Context) error {
	return a.backend.Ping(ctx)
}

// Analyze returns the assessment for message. Backend failures produce a
// degraded assessment instead of an error so the pipeline keeps moving.
func (a *Analyzer) Analyze(ctx context.Context, deviceID, message string) detection.Assessment {
	start := time.Now()
	raw, err := a.backend.Generate(ctx, BuildPrompt(deviceID, message))
	metrics.RecordAnalysis(a.backend.Name(), time.Since(start), err)

	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("provider", a.backend.Name()).Msg("Error analyzing log")
		return DegradedAssessment(err)
	}

	assessment, parseErr := parseAssessment(raw)
	if parseErr != nil {
		logging.Ctx(ctx).Warn().Err(parseErr).Msg("Failed to parse JSON response, using keyword fallback")
		metrics.RecordAnalysisFallback()
		return fallbackAssessment(raw)
	}
	return assessment
}

// DegradedAssessment is the assessment used when the backend call fails.
func DegradedAssessment(err error) detection.Assessment {
	return detection.Assessment{
		ThreatLevel:    detection.LevelUnknown,
		Severity:       0.0,
		Explanation:    fmt.Sprintf("Error analyzing log: %v", err),
		Recommendation: manualRecommendation,
	}
}
