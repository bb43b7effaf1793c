// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

/*
Package pipeline runs inbound IoT log lines through threat detection.

A Guardian owns a bounded intake queue and exactly one consumer goroutine:

	transport.Subscriber --Enqueue--> [queue] --> consumer
	                                               |
	                   llm.Analyzer.Analyze <------+
	                   detection.Classifier.Classify
	                   detection.EventLog.Append
	                   detection.Dispatcher.Dispatch (alerts only)

Enqueue never blocks. A full queue drops the record and increments
guardian_logs_dropped_total{reason="queue_full"}. Stop discards whatever is
still queued; there is no drain.

Start probes the inference backend once and fails with ErrBackendUnavailable
when it cannot be reached. RunWithContext wraps Start, Stop and Wait for the
supervisor tree.
*/
package pipeline
