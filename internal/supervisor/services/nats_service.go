// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/tinyguardian/internal/logging"
	"github.com/tomtom215/tinyguardian/internal/transport"
)

// LogSubscriber matches *transport.Subscriber.
type LogSubscriber interface {
	Run(ctx context.Context, sink transport.Sink) error
}

// NATSSubscriberService feeds device log messages into sink. The subscriber
// itself outlives restarts; the caller closes it after the tree stops.
type NATSSubscriberService struct {
	subscriber LogSubscriber
	sink       transport.Sink
}

// NewNATSSubscriberService wraps subscriber.
func NewNATSSubscriberService(subscriber LogSubscriber, sink transport.Sink) *NATSSubscriberService {
	return &NATSSubscriberService{subscriber: subscriber, sink: sink}
}

// Serve implements suture.Service. Subscribe failures are returned so the
// supervisor retries with backoff.
func (s *NATSSubscriberService) Serve(ctx context.Context) error {
	if err := s.subscriber.Run(ctx, s.sink); err != nil && ctx.Err() == nil {
		return fmt.Errorf("nats subscriber: %w", err)
	}
	return ctx.Err()
}

// String names the service in supervisor events.
func (s *NATSSubscriberService) String() string {
	return "nats-subscriber"
}

// EmbeddedBroker matches *transport.EmbeddedServer.
type EmbeddedBroker interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// DefaultHealthInterval is how often the embedded broker is checked.
const DefaultHealthInterval = 5 * time.Second

// EmbeddedNATSService owns the in-process broker's shutdown. The broker is
// started before the tree so clients can connect during bootstrap.
type EmbeddedNATSService struct {
	broker          EmbeddedBroker
	shutdownTimeout time.Duration
	healthInterval  time.Duration
}

// NewEmbeddedNATSService wraps broker.
func NewEmbeddedNATSService(broker EmbeddedBroker, shutdownTimeout time.Duration) *EmbeddedNATSService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &EmbeddedNATSService{
		broker:          broker,
		shutdownTimeout: shutdownTimeout,
		healthInterval:  DefaultHealthInterval,
	}
}

// Serve implements suture.Service. A broker that stops on its own cannot be
// restarted in place, so the whole tree terminates.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.broker.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded NATS server shutdown incomplete")
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.broker.IsRunning() {
				logging.Error().Msg("Embedded NATS server stopped unexpectedly")
				return suture.ErrTerminateSupervisorTree
			}
		}
	}
}

// String names the service in supervisor events.
func (s *EmbeddedNATSService) String() string {
	return "nats-server"
}
