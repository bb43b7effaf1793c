// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

// Command simulator publishes synthetic IoT device logs to NATS so a
// TinyGuardian instance has something to analyze.
//
// It reads the same configuration as the server; the relevant settings are
// NATS_URL and the SIMULATOR_* variables (interval, suspicious ratio, devices,
// subject prefix). Stop it with Ctrl-C.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/tinyguardian/internal/config"
	"github.com/tomtom215/tinyguardian/internal/logging"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Simulator exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.ValidateSimulator(); err != nil {
		return fmt.Errorf("invalid simulator configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("tinyguardian-simulator"),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Close()

	logging.Info().
		Str("url", nc.ConnectedUrl()).
		Strs("devices", cfg.Simulator.Devices).
		Dur("interval", cfg.Simulator.Interval).
		Float64("suspicious_ratio", cfg.Simulator.SuspiciousRatio).
		Msg("Connected to NATS broker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := newGenerator(cfg.Simulator.Devices, cfg.Simulator.SubjectPrefix, cfg.Simulator.SuspiciousRatio, nil)
	published, err := simulate(ctx, nc, gen, cfg.Simulator.Interval)

	if flushErr := nc.FlushTimeout(5 * time.Second); flushErr != nil {
		logging.Warn().Err(flushErr).Msg("Flush before exit failed")
	}
	logging.Info().Int("published", published).Msg("Stopped simulation")
	return err
}

// publisher is the subset of *nats.Conn the loop needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// simulate publishes one line immediately and then one per interval until
// ctx is done. It returns the number of lines published.
func simulate(ctx context.Context, pub publisher, gen *generator, interval time.Duration) (int, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	published := 0
	for {
		line := gen.next()
		if err := pub.Publish(line.Subject, []byte(line.Payload)); err != nil {
			return published, fmt.Errorf("publish to %s: %w", line.Subject, err)
		}
		published++
		logging.Info().
			Str("subject", line.Subject).
			Bool("suspicious", line.Suspicious).
			Str("message", line.Payload).
			Msg("Published")

		select {
		case <-ctx.Done():
			return published, nil
		case <-ticker.C:
		}
	}
}
