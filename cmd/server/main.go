// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/tinyguardian/internal/api"
	"github.com/tomtom215/tinyguardian/internal/config"
	"github.com/tomtom215/tinyguardian/internal/logging"
	"github.com/tomtom215/tinyguardian/internal/pipeline"
	"github.com/tomtom215/tinyguardian/internal/supervisor"
	"github.com/tomtom215/tinyguardian/internal/supervisor/services"
	ws "github.com/tomtom215/tinyguardian/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("TinyGuardian exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Msg("Starting TinyGuardian")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, err := initAnalyzer(ctx, &cfg.LLM)
	if err != nil {
		return err
	}

	guardian := pipeline.New(analyzer, pipeline.ConfigFromDetection(&cfg.Detection))

	nc, err := initNATS(&cfg.NATS)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Supervisor.ShutdownTimeout)
		defer cancel()
		nc.Close(closeCtx)
	}()

	store, err := initArchive(&cfg.Archive)
	if err != nil {
		return fmt.Errorf("open event archive: %w", err)
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event archive")
			}
		}()
	}

	hub := ws.NewHub()
	for _, n := range buildNotifiers(&cfg.Notifiers, hub, nc.publisher, store) {
		guardian.RegisterNotifier(n)
		logging.Info().Str("notifier", n.Name()).Bool("enabled", n.Enabled()).Msg("Alert notifier registered")
	}

	handler := api.NewHandler(guardian, hub, cfg)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)))
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFromSupervisor(&cfg.Supervisor))
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if nc.server != nil {
		tree.AddMessagingService(services.NewEmbeddedNATSService(nc.server, cfg.Supervisor.ShutdownTimeout))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewNATSSubscriberService(nc.subscriber, guardian))

	tree.AddPipelineService(services.NewGuardianService(guardian, pipeline.ErrStopped, pipeline.ErrBackendUnavailable))
	if store != nil {
		tree.AddPipelineService(services.NewArchiveService(store))
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	err = tree.Serve(ctx)
	tree.LogUnstopped()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	logging.Info().Msg("TinyGuardian stopped")
	return nil
}
