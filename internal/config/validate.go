// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package config

import (
	"fmt"
	"net/url"
)

// Providers accepted by llm.provider.
var validProviders = map[string]bool{
	"ollama":    true,
	"lm_studio": true,
	"openai":    true,
	"llama_cpp": true,
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateNotifiers(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateNATS() error {
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if len(c.NATS.Subjects) == 0 {
		return fmt.Errorf("NATS_SUBJECTS must contain at least one subject")
	}
	for _, s := range c.NATS.Subjects {
		if s == "" {
			return fmt.Errorf("NATS_SUBJECTS must not contain empty subjects")
		}
	}
	if c.NATS.SubscribersCount < 1 {
		return fmt.Errorf("NATS_SUBSCRIBERS_COUNT must be at least 1, got %d", c.NATS.SubscribersCount)
	}
	if c.NATS.PublishAlerts && c.NATS.AlertSubject == "" {
		return fmt.Errorf("NATS_ALERT_SUBJECT is required when NATS_PUBLISH_ALERTS is true")
	}
	if c.NATS.EmbeddedServer && (c.NATS.ServerPort < 0 || c.NATS.ServerPort > 65535) {
		return fmt.Errorf("NATS_SERVER_PORT must be between 0 and 65535, got %d", c.NATS.ServerPort)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("LLM_PROVIDER must be one of: ollama, lm_studio, openai, llama_cpp (got %q)", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}
	if err := validateHTTPURL(c.LLM.BaseURL); err != nil {
		return fmt.Errorf("LLM_BASE_URL is invalid: %w", err)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.RequestTimeout <= 0 || c.LLM.ProbeTimeout <= 0 {
		return fmt.Errorf("LLM_REQUEST_TIMEOUT and LLM_PROBE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDetection() error {
	d := c.Detection
	if d.SeverityThreshold < 0 || d.SeverityThreshold > 1 {
		return fmt.Errorf("SEVERITY_THRESHOLD must be between 0.0 and 1.0, got %v", d.SeverityThreshold)
	}
	if d.Window <= 0 {
		return fmt.Errorf("DETECTION_WINDOW must be positive, got %v", d.Window)
	}
	if d.QueueSize <= 0 {
		return fmt.Errorf("DETECTION_QUEUE_SIZE must be positive, got %d", d.QueueSize)
	}
	if d.PollInterval <= 0 {
		return fmt.Errorf("DETECTION_POLL_INTERVAL must be positive, got %v", d.PollInterval)
	}
	return nil
}

func (c *Config) validateNotifiers() error {
	if c.Notifiers.Webhook.Enabled {
		if err := validateHTTPURL(c.Notifiers.Webhook.URL); err != nil {
			return fmt.Errorf("WEBHOOK_URL is invalid: %w", err)
		}
	}
	if c.Notifiers.Discord.Enabled {
		if err := validateHTTPURL(c.Notifiers.Discord.WebhookURL); err != nil {
			return fmt.Errorf("DISCORD_WEBHOOK_URL is invalid: %w", err)
		}
	}
	return nil
}

func (c *Config) validateArchive() error {
	if !c.Archive.Enabled || c.Archive.InMemory {
		return nil
	}
	if c.Archive.Path == "" {
		return fmt.Errorf("ARCHIVE_PATH is required when the archive is enabled on disk")
	}
	if c.Archive.TTL < 0 {
		return fmt.Errorf("ARCHIVE_TTL must not be negative, got %v", c.Archive.TTL)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitRequests)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// ValidateSimulator checks the simulator section; the server ignores it.
func (c *Config) ValidateSimulator() error {
	s := c.Simulator
	if s.Interval <= 0 {
		return fmt.Errorf("SIMULATOR_INTERVAL must be positive, got %v", s.Interval)
	}
	if s.SuspiciousRatio < 0 || s.SuspiciousRatio > 1 {
		return fmt.Errorf("SIMULATOR_SUSPICIOUS must be between 0.0 and 1.0, got %v", s.SuspiciousRatio)
	}
	if len(s.Devices) == 0 {
		return fmt.Errorf("SIMULATOR_DEVICES must list at least one device")
	}
	if s.SubjectPrefix == "" {
		return fmt.Errorf("SIMULATOR_SUBJECT_PREFIX is required")
	}
	return nil
}

func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}
	return nil
}

func validateHTTPURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL is required")
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
