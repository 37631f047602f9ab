// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

/*
Package websocket pushes import progress to operator browsers.

A Hub owns the set of connected clients and fans every broadcast out to
them. Each Client runs a read pump (answers application pings, detects
disconnects) and a write pump (delivers messages, sends protocol pings).

Message types:

	import_progress  a registryimport.Progress projection
	import_event     a driver event (file finished, paused, cancelled, ...)
	ping / pong      application-level keepalive

A client that connects mid-import immediately receives the most recent
import_progress message. Slow clients whose buffers fill are dropped.
*/
package websocket
