// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

// Package detection turns model assessments of IoT log lines into security
// events, keeps the in-memory event log, and fans alerts out to observers.
//
// Detection Architecture:
//
//	log line + Assessment -> Classifier -> SecurityEvent -> EventLog
//	                             |                              |
//	                             v                              v
//	                   per-device burst window       Dispatcher (alerts only)
//	                                                            |
//	                                                            v
//	                                         log / WebSocket / Discord / webhook / NATS
//
// The Classifier and EventLog writes are owned by the pipeline consumer
// goroutine. EventLog reads are safe from any goroutine and return copies.
//
// Threat types are chosen by ordered keyword groups over the lower-cased log
// text and model explanation; the first matching group wins. A device that
// has already produced three events of the same type inside the burst window
// gets a 0.2 severity bump on the next one.
package detection
