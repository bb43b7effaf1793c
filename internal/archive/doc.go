// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

// Package archive keeps an optional BadgerDB copy of alert events that
// survives restarts. It is registered as an alert observer and is never read
// by the query API.
package archive
