// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package llm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tinyguardian/internal/detection"
)

const (
	defaultExplanation    = "No explanation provided"
	defaultRecommendation = "No recommendation"
	manualRecommendation  = "Review log manually"

	// fallbackExplanationRunes caps the raw text kept as explanation.
	fallbackExplanationRunes = 500
)

var errNoJSONCandidate = errors.New("no JSON candidate in response")

// fallbackRule maps vocabulary found in free text to a level and severity.
type fallbackRule struct {
	words    []string
	level    detection.ThreatLevel
	severity float64
}

// Checked in order; the first rule with any matching word wins.
var fallbackRules = []fallbackRule{
	{[]string{"critical", "high", "severe"}, detection.LevelHigh, 0.8},
	{[]string{"medium", "moderate"}, detection.LevelMedium, 0.5},
	{[]string{"low", "minor"}, detection.LevelLow, 0.3},
	{[]string{"none", "normal", "safe"}, detection.LevelNone, 0.0},
}

// Normalize converts raw model text into an Assessment. It never fails:
// text that is not a usable JSON object is rated by keyword fallback.
func Normalize(raw string) detection.Assessment {
	a, err := parseAssessment(raw)
	if err != nil {
		return fallbackAssessment(raw)
	}
	return a
}

// parseAssessment extracts and validates the JSON object in raw.
func parseAssessment(raw string) (detection.Assessment, error) {
	candidate, ok := extractJSON(raw)
	if !ok {
		return detection.Assessment{}, errNoJSONCandidate
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return detection.Assessment{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if fields == nil {
		return detection.Assessment{}, errors.New("JSON value is not an object")
	}

	a := detection.Assessment{
		ThreatLevel:    detection.LevelUnknown,
		Explanation:    defaultExplanation,
		Recommendation: defaultRecommendation,
	}

	if v, ok := fields["threat_level"]; ok {
		s, isString := v.(string)
		if !isString {
			return detection.Assessment{}, fmt.Errorf("threat_level has type %T", v)
		}
		a.ThreatLevel = detection.ParseThreatLevel(strings.ToLower(strings.TrimSpace(s)))
	}

	if v, ok := fields["severity"]; ok {
		sev, err := parseSeverity(v)
		if err != nil {
			return detection.Assessment{}, err
		}
		a.Severity = detection.ClampSeverity(sev)
	}

	if v, ok := fields["explanation"]; ok {
		s, isString := v.(string)
		if !isString {
			return detection.Assessment{}, fmt.Errorf("explanation has type %T", v)
		}
		a.Explanation = s
	}

	if v, ok := fields["recommendation"]; ok {
		s, isString := v.(string)
		if !isString {
			return detection.Assessment{}, fmt.Errorf("recommendation has type %T", v)
		}
		a.Recommendation = s
	}

	return a, nil
}

func parseSeverity(v interface{}) (float64, error) {
	switch s := v.(type) {
	case float64:
		return s, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("severity %q is not numeric: %w", s, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("severity has type %T", v)
	}
}

// extractJSON finds the JSON candidate in raw: a ```json fence, then any
// ``` fence, then the span from the first '{' to the last '}'.
func extractJSON(raw string) (string, bool) {
	if i := strings.Index(raw, "```json"); i >= 0 {
		return fenceBody(raw[i+len("```json"):], false), true
	}
	if i := strings.Index(raw, "```"); i >= 0 {
		return fenceBody(raw[i+len("```"):], true), true
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// fenceBody returns the text up to the closing fence, or to the end when the
// fence is never closed. With skipInfo, a leading info-string line such as
// "JSON" is dropped.
func fenceBody(rest string, skipInfo bool) string {
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	if skipInfo {
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			first := strings.TrimSpace(rest[:nl])
			if first != "" && !strings.HasPrefix(first, "{") && !strings.HasPrefix(first, "[") {
				rest = rest[nl+1:]
			}
		}
	}
	return strings.TrimSpace(rest)
}

// fallbackAssessment rates free text by its vocabulary.
func fallbackAssessment(raw string) detection.Assessment {
	lower := strings.ToLower(raw)

	a := detection.Assessment{
		ThreatLevel:    detection.LevelUnknown,
		Severity:       0.5,
		Explanation:    truncateRunes(raw, fallbackExplanationRunes),
		Recommendation: manualRecommendation,
	}
	for _, rule := range fallbackRules {
		if containsAny(lower, rule.words) {
			a.ThreatLevel = rule.level
			a.Severity = rule.severity
			break
		}
	}
	return a
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
