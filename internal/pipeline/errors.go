// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package pipeline

import "errors"

var (
	// ErrStopped is returned by Enqueue and Start once the Guardian has stopped.
	ErrStopped = errors.New("guardian stopped")

	// ErrAlreadyRunning is returned by Start on a running Guardian.
	ErrAlreadyRunning = errors.New("guardian already running")

	// ErrBackendUnavailable wraps the startup probe failure.
	ErrBackendUnavailable = errors.New("inference backend unavailable")
)
