// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

package transport

import (
	"errors"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/tinyguardian/internal/pipeline"
)

// Metadata keys set by LogMarshaler.
const (
	MetadataSubject    = "subject"
	MetadataReceivedAt = "received_at"
)

// UnknownDevice is the device id used when the subject carries none.
const UnknownDevice = "unknown"

var (
	// ErrEmptyPayload is returned for messages without a body.
	ErrEmptyPayload = errors.New("empty message payload")

	// ErrInvalidEncoding is returned for payloads that are not valid UTF-8.
	ErrInvalidEncoding = errors.New("message payload is not valid UTF-8")
)

// Matches both iot/devices/<id>/logs and iot.devices.<id>.logs.
var devicePattern = regexp.MustCompile(`devices[/.]([^/.]+)`)

// DeviceIDFromTopic extracts the device id from a topic or subject.
func DeviceIDFromTopic(topic string) string {
	if m := devicePattern.FindStringSubmatch(topic); m != nil {
		return m[1]
	}
	return UnknownDevice
}

// LogMarshaler carries plain-text device logs over core NATS. Devices publish
// raw text with no headers, so watermill's default NATSMarshaler (which
// expects a UUID header) cannot read them.
type LogMarshaler struct{}

// Marshal implements wmNats.Marshaler.
func (LogMarshaler) Marshal(topic string, msg *message.Message) (*natsgo.Msg, error) {
	return &natsgo.Msg{Subject: topic, Data: msg.Payload}, nil
}

// Unmarshal implements wmNats.Unmarshaler. It never fails; payload checks
// happen in RecordFromMessage so rejects can be counted and acked.
func (LogMarshaler) Unmarshal(m *natsgo.Msg) (*message.Message, error) {
	msg := message.NewMessage(watermill.NewUUID(), m.Data)
	msg.Metadata.Set(MetadataSubject, m.Subject)
	msg.Metadata.Set(MetadataReceivedAt, time.Now().UTC().Format(time.RFC3339Nano))
	return msg, nil
}

// RecordFromMessage turns a consumed message into a queue record.
func RecordFromMessage(msg *message.Message) (pipeline.RawLogRecord, error) {
	if len(msg.Payload) == 0 {
		return pipeline.RawLogRecord{}, ErrEmptyPayload
	}
	if !utf8.Valid(msg.Payload) {
		return pipeline.RawLogRecord{}, ErrInvalidEncoding
	}

	subject := msg.Metadata.Get(MetadataSubject)
	rec := pipeline.RawLogRecord{
		DeviceID: DeviceIDFromTopic(subject),
		Message:  string(msg.Payload),
		Topic:    subject,
	}
	if ts, err := time.Parse(time.RFC3339Nano, msg.Metadata.Get(MetadataReceivedAt)); err == nil {
		rec.ReceivedAt = ts
	}
	return rec, nil
}

// dropReason maps a RecordFromMessage error to a metrics label.
func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyPayload):
		return "empty_payload"
	case errors.Is(err, ErrInvalidEncoding):
		return "invalid_encoding"
	default:
		return "malformed"
	}
}
