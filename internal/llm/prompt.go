// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package llm

import "fmt"

const analysisPromptTemplate = `You are a cybersecurity expert analyzing IoT device logs. Analyze the following log message and determine if it indicates a security threat.

Device ID: %s
Log Message: %s

Provide your analysis in JSON format with the following fields:
- threat_level: "none", "low", "medium", "high", or "critical"
- severity: float between 0.0 and 1.0
- explanation: brief explanation of what the log indicates
- recommendation: actionable security recommendation

Focus on:
- Unauthorized access attempts
- Unusual network activity
- Authentication failures
- Configuration changes
- Anomalous behavior patterns

JSON Response:`

// BuildPrompt renders the analysis prompt for one log line.
func BuildPrompt(deviceID, logMessage string) string {
	return fmt.Sprintf(analysisPromptTemplate, deviceID, logMessage)
}
