// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

/*
Package transport connects the guardian to NATS.

Devices publish plain-text log lines on core NATS subjects such as
iot.devices.<device_id>.logs. Subscriber consumes them through a watermill-nats
subscriber configured with LogMarshaler, converts each message into a
pipeline.RawLogRecord and hands it to the Guardian:

	sub, err := transport.NewSubscriber(transport.SubscriberConfigFromNATS(&cfg.NATS), nil)
	if err != nil {
		return err // broker unreachable at startup is fatal
	}
	go sub.Run(ctx, guardian)

Empty payloads and payloads that are not UTF-8 are acked, logged and counted
under guardian_logs_dropped_total. The device id comes from the subject via
DeviceIDFromTopic, which accepts both dot and slash separators.

AlertPublisher is a detection.Notifier that republishes alerts as JSON on
guardian.alerts. EmbeddedServer runs nats-server in-process for single-box
deployments and tests.
*/
package transport
