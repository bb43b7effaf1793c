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
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/tinyguardian/internal/config"
	"github.com/tomtom215/tinyguardian/internal/logging"
	"github.com/tomtom215/tinyguardian/internal/metrics"
	"github.com/tomtom215/tinyguardian/internal/pipeline"
)

// Sink receives converted log records. *pipeline.Guardian satisfies it.
type Sink interface {
	Enqueue(rec pipeline.RawLogRecord) error
}

// SubscriberConfig holds NATS intake settings.
type SubscriberConfig struct {
	URL      string
	Subjects []string

	// QueueGroup load-balances across instances. Empty means every instance
	// sees every message.
	QueueGroup string

	// SubscribersCount is only honored with a QueueGroup.
	SubscribersCount int

	MaxReconnects int
	ReconnectWait time.Duration
	CloseTimeout  time.Duration
}

// SubscriberConfigFromNATS maps the nats config section onto SubscriberConfig.
func SubscriberConfigFromNATS(cfg *config.NATSConfig) SubscriberConfig {
	return SubscriberConfig{
		URL:              cfg.URL,
		Subjects:         cfg.Subjects,
		QueueGroup:       cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		MaxReconnects:    cfg.MaxReconnects,
		ReconnectWait:    cfg.ReconnectWait,
		CloseTimeout:     cfg.CloseTimeout,
	}
}

// Subscriber consumes plain-text device logs from core NATS and feeds them
// to a Sink.
type Subscriber struct {
	subscriber message.Subscriber
	config     SubscriberConfig
	logger     watermill.LoggerAdapter
}

// NewSubscriber connects to NATS. Unlike the alert publisher it does not
// retry the first connection, so a broker that is down at startup is fatal.
func NewSubscriber(cfg SubscriberConfig, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}
	if len(cfg.Subjects) == 0 {
		return nil, errors.New("at least one subject required")
	}
	if cfg.QueueGroup == "" || cfg.SubscribersCount < 1 {
		cfg.SubscribersCount = 1
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("tinyguardian-intake"),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Subscriber reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      LogMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			// Devices publish fire-and-forget on core NATS.
			Disabled: true,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Subscriber{
		subscriber: sub,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Run subscribes to every configured subject and forwards messages to sink
// until ctx is cancelled. Every message is acked, including rejects.
func (s *Subscriber) Run(ctx context.Context, sink Sink) error {
	var wg sync.WaitGroup

	for _, subject := range s.config.Subjects {
		messages, err := s.subscriber.Subscribe(ctx, subject)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", subject, err)
		}

		wg.Add(1)
		go func(subject string, messages <-chan *message.Message) {
			defer wg.Done()
			s.consume(ctx, subject, messages, sink)
		}(subject, messages)

		logging.Info().Str("subject", subject).Str("queue_group", s.config.QueueGroup).Msg("Subscribed to device logs")
	}

	wg.Wait()
	return ctx.Err()
}

func (s *Subscriber) consume(ctx context.Context, subject string, messages <-chan *message.Message, sink Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			s.handle(msg, sink)
			msg.Ack()
		}
	}
}

func (s *Subscriber) handle(msg *message.Message, sink Sink) {
	metrics.RecordNATSConsume()

	rec, err := RecordFromMessage(msg)
	if err != nil {
		metrics.RecordLogDropped(dropReason(err))
		logging.Warn().
			Err(err).
			Str("subject", msg.Metadata.Get(MetadataSubject)).
			Msg("Dropping malformed message")
		return
	}

	if err := sink.Enqueue(rec); err != nil {
		if errors.Is(err, pipeline.ErrStopped) {
			logging.Debug().Str("device_id", rec.DeviceID).Msg("Guardian stopped, discarding message")
			return
		}
		logging.Error().Err(err).Str("device_id", rec.DeviceID).Msg("Failed to enqueue message")
	}
}

// Close shuts down the underlying subscriber.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}
