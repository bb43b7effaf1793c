// TinyGuardian - IoT Log Threat Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tinyguardian

/*
Package services adapts TinyGuardian components to suture.Service.

Each wrapper translates one lifecycle style into Serve(ctx) error:

  - HTTPServerService: ListenAndServe/Shutdown with a drain timeout
  - RunnerService: anything with RunWithContext (websocket hub, guardian,
    event archive); selected errors map to suture.ErrDoNotRestart
  - NATSSubscriberService: transport.Subscriber.Run into a Sink
  - EmbeddedNATSService: owns the in-process broker's shutdown and ends
    the tree if the broker dies

Return values drive the supervisor:

	nil / ctx.Err()              stopped, no restart on shutdown
	error                        crashed, restarted with backoff
	suture.ErrDoNotRestart       stopped for good
	suture.ErrTerminateSupervisorTree  whole tree exits

Every wrapper implements fmt.Stringer so supervisor events name it.
*/
package services
