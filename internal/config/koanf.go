// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tinyguardian/config.yaml",
	"/etc/tinyguardian/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// sliceConfigPaths accept comma-separated strings from the environment.
var sliceConfigPaths = []string{
	"nats.subjects",
	"security.cors_origins",
	"simulator.devices",
}

func defaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:              "nats://127.0.0.1:4222",
			Subjects:         []string{"iot.devices.*.logs"},
			QueueGroup:       "",
			SubscribersCount: 1,
			MaxReconnects:    -1,
			ReconnectWait:    2 * time.Second,
			CloseTimeout:     30 * time.Second,
			PublishAlerts:    false,
			AlertSubject:     "guardian.alerts",
			EmbeddedServer:   false,
			ServerHost:       "127.0.0.1",
			ServerPort:       4222,
		},
		LLM: LLMConfig{
			Provider:       "ollama",
			Model:          "phi3:mini",
			BaseURL:        "http://localhost:11434",
			Temperature:    0.3,
			MaxTokens:      500,
			RequestTimeout: 30 * time.Second,
			ProbeTimeout:   5 * time.Second,
			CircuitBreaker: true,
		},
		Detection: DetectionConfig{
			SeverityThreshold: 0.7,
			Window:            5 * time.Minute,
			QueueSize:         1000,
			PollInterval:      time.Second,
		},
		Notifiers: NotifiersConfig{
			Log:       true,
			WebSocket: true,
			Webhook: WebhookConfig{
				RateLimit: 500 * time.Millisecond,
			},
			Discord: DiscordConfig{
				RateLimit: time.Second,
			},
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Path:    "/data/tinyguardian-archive",
			TTL:     7 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Simulator: SimulatorConfig{
			Interval:        2 * time.Second,
			SuspiciousRatio: 0.2,
			Devices:         []string{"smart_camera_01", "door_lock_02", "sensor_03", "thermostat_04"},
			SubjectPrefix:   "iot.devices",
		},
	}
}

// LoadWithKoanf layers defaults, the config file and environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// NATS_URL -> nats.url, SEVERITY_THRESHOLD -> detection.severity_threshold
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Transport
	"nats_url":               "nats.url",
	"nats_subjects":          "nats.subjects",
	"nats_queue_group":       "nats.queue_group",
	"nats_subscribers_count": "nats.subscribers_count",
	"nats_max_reconnects":    "nats.max_reconnects",
	"nats_reconnect_wait":    "nats.reconnect_wait",
	"nats_publish_alerts":    "nats.publish_alerts",
	"nats_alert_subject":     "nats.alert_subject",
	"nats_embedded_server":   "nats.embedded_server",
	"nats_server_host":       "nats.server_host",
	"nats_server_port":       "nats.server_port",

	// Inference backend
	"llm_provider":        "llm.provider",
	"llm_model":           "llm.model",
	"llm_base_url":        "llm.base_url",
	"llm_api_key":         "llm.api_key",
	"llm_temperature":     "llm.temperature",
	"llm_max_tokens":      "llm.max_tokens",
	"llm_request_timeout": "llm.request_timeout",
	"llm_probe_timeout":   "llm.probe_timeout",
	"llm_circuit_breaker": "llm.circuit_breaker",

	// Detection
	"severity_threshold":      "detection.severity_threshold",
	"detection_window":        "detection.window",
	"detection_queue_size":    "detection.queue_size",
	"detection_poll_interval": "detection.poll_interval",

	// Notifiers
	"notify_log":          "notifiers.log",
	"notify_websocket":    "notifiers.websocket",
	"webhook_enabled":     "notifiers.webhook.enabled",
	"webhook_url":         "notifiers.webhook.url",
	"webhook_rate_limit":  "notifiers.webhook.rate_limit",
	"discord_enabled":     "notifiers.discord.enabled",
	"discord_webhook_url": "notifiers.discord.webhook_url",
	"discord_rate_limit":  "notifiers.discord.rate_limit",

	// Archive
	"archive_enabled":   "archive.enabled",
	"archive_path":      "archive.path",
	"archive_in_memory": "archive.in_memory",
	"archive_ttl":       "archive.ttl",

	// HTTP server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "security.cors_origins",
	"rate_limit_requests":   "security.rate_limit_requests",
	"rate_limit_window":     "security.rate_limit_window",
	"disable_rate_limit":    "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor
	"supervisor_backoff":   "supervisor.failure_backoff",
	"supervisor_threshold": "supervisor.failure_threshold",

	// Simulator
	"simulator_interval":       "simulator.interval",
	"simulator_suspicious":     "simulator.suspicious_ratio",
	"simulator_devices":        "simulator.devices",
	"simulator_subject_prefix": "simulator.subject_prefix",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	// Unmapped variables are skipped so the process environment cannot leak into config.
	return ""
}
