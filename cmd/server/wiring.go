// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/tinyguardian/internal/archive"
	"github.com/tomtom215/tinyguardian/internal/config"
	"github.com/tomtom215/tinyguardian/internal/detection"
	"github.com/tomtom215/tinyguardian/internal/llm"
	"github.com/tomtom215/tinyguardian/internal/logging"
	"github.com/tomtom215/tinyguardian/internal/pipeline"
	"github.com/tomtom215/tinyguardian/internal/transport"
)

// initAnalyzer builds the configured backend, optionally behind the circuit
// breaker, and probes it once. A failed probe is fatal.
func initAnalyzer(ctx context.Context, cfg *config.LLMConfig) (*llm.Analyzer, error) {
	backend, err := llm.NewBackend(llm.OptionsFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	if cfg.CircuitBreaker {
		backend = llm.NewBreakerBackend(backend, llm.DefaultBreakerSettings())
	}

	analyzer := llm.NewAnalyzer(backend)
	if err := analyzer.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s at %s: %w", pipeline.ErrBackendUnavailable, backend.Name(), cfg.BaseURL, err)
	}

	logging.Info().
		Str("provider", backend.Name()).
		Str("model", cfg.Model).
		Str("base_url", cfg.BaseURL).
		Bool("circuit_breaker", cfg.CircuitBreaker).
		Msg("Inference backend ready")
	return analyzer, nil
}

// natsComponents holds the transport side of the process.
type natsComponents struct {
	server     *transport.EmbeddedServer // nil unless nats.embedded_server
	subscriber *transport.Subscriber
	publisher  *transport.AlertPublisher // nil unless nats.publish_alerts
}

// initNATS starts the embedded broker when configured, then connects the
// intake subscriber and the alert publisher. With an embedded broker the
// clients use its URL instead of nats.url.
func initNATS(cfg *config.NATSConfig) (*natsComponents, error) {
	nc := &natsComponents{}
	wmLogger := watermill.NewSlogLogger(logging.NewSlogLogger())

	if cfg.EmbeddedServer {
		server, err := transport.NewEmbeddedServer(transport.ServerConfigFromNATS(cfg))
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		nc.server = server
		cfg.URL = server.ClientURL()
	}

	sub, err := transport.NewSubscriber(transport.SubscriberConfigFromNATS(cfg), wmLogger)
	if err != nil {
		nc.Close(context.Background())
		return nil, fmt.Errorf("connect NATS subscriber to %s: %w", cfg.URL, err)
	}
	nc.subscriber = sub

	if cfg.PublishAlerts {
		pub, err := transport.NewAlertPublisher(transport.PublisherConfigFromNATS(cfg), wmLogger)
		if err != nil {
			nc.Close(context.Background())
			return nil, fmt.Errorf("create alert publisher: %w", err)
		}
		nc.publisher = pub
	}

	logging.Info().
		Str("url", cfg.URL).
		Strs("subjects", cfg.Subjects).
		Bool("embedded", cfg.EmbeddedServer).
		Bool("publish_alerts", cfg.PublishAlerts).
		Msg("NATS transport ready")
	return nc, nil
}

// Close releases the clients and, if it is still up, the embedded broker.
func (nc *natsComponents) Close(ctx context.Context) {
	if nc.subscriber != nil {
		if err := nc.subscriber.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing NATS subscriber")
		}
	}
	if nc.publisher != nil {
		if err := nc.publisher.Close(); err != nil && !errors.Is(err, transport.ErrPublisherClosed) {
			logging.Warn().Err(err).Msg("Error closing alert publisher")
		}
	}
	if nc.server != nil && nc.server.IsRunning() {
		if err := nc.server.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Error stopping embedded NATS server")
		}
	}
}

// initArchive opens the event archive when enabled; nil otherwise.
func initArchive(cfg *config.ArchiveConfig) (*archive.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	store, err := archive.Open(archive.ConfigFromArchive(cfg))
	if err != nil {
		return nil, err
	}
	return store, nil
}

// buildNotifiers returns the alert observers in dispatch order. Disabled
// notifiers are still returned; the dispatcher skips them.
func buildNotifiers(cfg *config.NotifiersConfig, hub detection.Broadcaster, publisher *transport.AlertPublisher, store *archive.Store) []detection.Notifier {
	notifiers := []detection.Notifier{
		detection.NewLogNotifier(cfg.Log),
		detection.NewWebSocketNotifier(hub, cfg.WebSocket),
	}

	if cfg.Webhook.Enabled {
		notifiers = append(notifiers, detection.NewWebhookNotifier(detection.WebhookConfig{
			WebhookURL: cfg.Webhook.URL,
			Headers:    cfg.Webhook.Headers,
			Enabled:    true,
			RateLimit:  cfg.Webhook.RateLimit,
		}))
	}
	if cfg.Discord.Enabled {
		notifiers = append(notifiers, detection.NewDiscordNotifier(detection.DiscordConfig{
			WebhookURL: cfg.Discord.WebhookURL,
			Enabled:    true,
			RateLimit:  cfg.Discord.RateLimit,
		}))
	}
	if publisher != nil {
		notifiers = append(notifiers, publisher)
	}
	if store != nil {
		notifiers = append(notifiers, store)
	}
	return notifiers
}
