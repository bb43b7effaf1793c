// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/tinyguardian/internal/logging"
)

// ContextRunner is a component that already runs until its context is done.
// Satisfied by *websocket.Hub, *pipeline.Guardian and *archive.Store.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService supervises a ContextRunner under a fixed name.
type RunnerService struct {
	runner    ContextRunner
	name      string
	permanent []error
	fatal     []error
}

// NewRunnerService wraps runner. Errors matching any of permanent stop the
// service for good instead of triggering a restart.
func NewRunnerService(name string, runner ContextRunner, permanent ...error) *RunnerService {
	return &RunnerService{runner: runner, name: name, permanent: permanent}
}

// NewWebSocketHubService supervises the alert broadcast hub.
func NewWebSocketHubService(hub ContextRunner) *RunnerService {
	return NewRunnerService("websocket-hub", hub)
}

// WithFatal marks errors that terminate the whole supervisor tree.
func (s *RunnerService) WithFatal(fatal ...error) *RunnerService {
	s.fatal = append(s.fatal, fatal...)
	return s
}

// NewGuardianService supervises the pipeline consumer. A guardian that has
// been stopped cannot be restarted, so stopped is permanent. An unreachable
// backend at start is fatal to the process.
func NewGuardianService(guardian ContextRunner, stopped, unavailable error) *RunnerService {
	return NewRunnerService("guardian", guardian, stopped).WithFatal(unavailable)
}

// NewArchiveService supervises archive maintenance.
func NewArchiveService(store ContextRunner) *RunnerService {
	return NewRunnerService("event-archive", store)
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.runner.RunWithContext(ctx)
	for _, f := range s.fatal {
		if f != nil && errors.Is(err, f) {
			logging.Error().Err(err).Str("service", s.name).Msg("Fatal service error, terminating supervisor tree")
			return suture.ErrTerminateSupervisorTree
		}
	}
	for _, p := range s.permanent {
		if p != nil && errors.Is(err, p) {
			return suture.ErrDoNotRestart
		}
	}
	return err
}

// String names the service in supervisor events.
func (s *RunnerService) String() string {
	return s.name
}
