// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/tinyguardian/internal/config"
	"github.com/tomtom215/tinyguardian/internal/detection"
	"github.com/tomtom215/tinyguardian/internal/logging"
	"github.com/tomtom215/tinyguardian/internal/metrics"
)

// DefaultAlertSubject is where alerts are republished.
const DefaultAlertSubject = "guardian.alerts"

// ErrPublisherClosed is returned by Send after Close.
var ErrPublisherClosed = errors.New("alert publisher is closed")

// PublisherConfig holds alert publisher settings.
type PublisherConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// PublisherConfigFromNATS maps the nats config section onto PublisherConfig.
func PublisherConfigFromNATS(cfg *config.NATSConfig) PublisherConfig {
	return PublisherConfig{
		URL:           cfg.URL,
		Subject:       cfg.AlertSubject,
		MaxReconnects: cfg.MaxReconnects,
		ReconnectWait: cfg.ReconnectWait,
	}
}

// AlertPublisher is a detection.Notifier that republishes alerts as JSON on
// a NATS subject for downstream consumers.
type AlertPublisher struct {
	publisher message.Publisher
	subject   string

	mu      sync.RWMutex
	closed  bool
	enabled bool
}

// NewAlertPublisher creates an enabled AlertPublisher.
func NewAlertPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*AlertPublisher, error) {
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultAlertSubject
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("tinyguardian-alerts"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &AlertPublisher{
		publisher: pub,
		subject:   cfg.Subject,
		enabled:   true,
	}, nil
}

// Name implements detection.Notifier.
func (p *AlertPublisher) Name() string { return "nats" }

// Enabled implements detection.Notifier.
func (p *AlertPublisher) Enabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled && !p.closed
}

// SetEnabled toggles publishing.
func (p *AlertPublisher) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Subject returns the alert subject.
func (p *AlertPublisher) Subject() string { return p.subject }

// Send publishes the event JSON. The event id doubles as the message UUID.
func (p *AlertPublisher) Send(ctx context.Context, e *detection.SecurityEvent) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	msg := message.NewMessage(e.EventID, data)
	msg.Metadata.Set("device_id", e.DeviceID)
	msg.Metadata.Set("threat_type", string(e.ThreatType))
	msg.Metadata.Set("threat_level", string(e.ThreatLevel))
	msg.SetContext(ctx)

	err = p.publisher.Publish(p.subject, msg)
	metrics.RecordNATSAlertPublish(err)
	if err != nil {
		return fmt.Errorf("publish alert to %s: %w", p.subject, err)
	}
	return nil
}

// Close shuts down the publisher.
func (p *AlertPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
