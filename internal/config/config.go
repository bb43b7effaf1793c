// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

// Package config loads TinyGuardian configuration.
//
// Loading order (koanf v2):
//  1. Defaults: built-in values for every setting
//  2. Config file: optional YAML (CONFIG_PATH, ./config.yaml, /etc/tinyguardian/config.yaml)
//  3. Environment variables: explicit mapping table, highest priority
package config

import "time"

// Config holds all application configuration.
type Config struct {
	NATS       NATSConfig       `koanf:"nats"`
	LLM        LLMConfig        `koanf:"llm"`
	Detection  DetectionConfig  `koanf:"detection"`
	Notifiers  NotifiersConfig  `koanf:"notifiers"`
	Archive    ArchiveConfig    `koanf:"archive"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Simulator  SimulatorConfig  `koanf:"simulator"`
}

// NATSConfig configures log intake and alert publishing.
//
// Environment Variables:
//   - NATS_URL: broker URL (default: nats://127.0.0.1:4222)
//   - NATS_SUBJECTS: comma-separated subjects to subscribe to (default: iot.devices.*.logs)
//   - NATS_EMBEDDED_SERVER: run an in-process broker (default: false)
type NATSConfig struct {
	URL string `koanf:"url"`

	// Subjects are the log subjects. Wildcards follow NATS rules.
	Subjects []string `koanf:"subjects"`

	// QueueGroup load-balances intake across instances when set.
	QueueGroup string `koanf:"queue_group"`

	SubscribersCount int           `koanf:"subscribers_count"`
	MaxReconnects    int           `koanf:"max_reconnects"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`

	// PublishAlerts republishes every alert on AlertSubject.
	PublishAlerts bool   `koanf:"publish_alerts"`
	AlertSubject  string `koanf:"alert_subject"`

	EmbeddedServer bool   `koanf:"embedded_server"`
	ServerHost     string `koanf:"server_host"`
	ServerPort     int    `koanf:"server_port"`
}

// LLMConfig selects and tunes the inference backend.
type LLMConfig struct {
	// Provider is one of ollama, lm_studio, openai, llama_cpp.
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`

	// APIKey is sent as a bearer token by chat-style backends.
	APIKey string `koanf:"api_key"`

	Temperature    float64       `koanf:"temperature"`
	MaxTokens      int           `koanf:"max_tokens"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	ProbeTimeout   time.Duration `koanf:"probe_timeout"`

	// CircuitBreaker fails fast while the backend keeps erroring.
	CircuitBreaker bool `koanf:"circuit_breaker"`
}

// DetectionConfig tunes classification and the intake queue.
type DetectionConfig struct {
	// SeverityThreshold is the inclusive alert threshold.
	SeverityThreshold float64 `koanf:"severity_threshold"`

	// Window is the per-device burst window.
	Window time.Duration `koanf:"window"`

	QueueSize    int           `koanf:"queue_size"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

// NotifiersConfig enables alert observers.
type NotifiersConfig struct {
	Log       bool          `koanf:"log"`
	WebSocket bool          `koanf:"websocket"`
	Webhook   WebhookConfig `koanf:"webhook"`
	Discord   DiscordConfig `koanf:"discord"`
}

// WebhookConfig configures the generic webhook notifier.
type WebhookConfig struct {
	Enabled   bool              `koanf:"enabled"`
	URL       string            `koanf:"url"`
	Headers   map[string]string `koanf:"headers"`
	RateLimit time.Duration     `koanf:"rate_limit"`
}

// DiscordConfig configures the Discord notifier.
type DiscordConfig struct {
	Enabled    bool          `koanf:"enabled"`
	WebhookURL string        `koanf:"webhook_url"`
	RateLimit  time.Duration `koanf:"rate_limit"`
}

// ArchiveConfig configures the optional BadgerDB alert archive.
type ArchiveConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Path     string        `koanf:"path"`
	InMemory bool          `koanf:"in_memory"`
	TTL      time.Duration `koanf:"ttl"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds CORS and rate limiting for the HTTP API.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig tunes the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// SimulatorConfig drives cmd/simulator.
type SimulatorConfig struct {
	Interval        time.Duration `koanf:"interval"`
	SuspiciousRatio float64       `koanf:"suspicious_ratio"`
	Devices         []string      `koanf:"devices"`

	// SubjectPrefix is joined as <prefix>.<device>.logs.
	SubjectPrefix string `koanf:"subject_prefix"`
}

// Load reads configuration from defaults, the optional config file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
