// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

/*
Package notify carries "something changed" notifications about an import
over core NATS, using Watermill's NATS transport.

Subjects are scoped by dimension (year) and session:

	<prefix>.<year>.<sessionId>.rows     rows were written for the session
	<prefix>.<year>.<sessionId>.session  session state changed

The ingestion backend publishes .rows; the Publisher here mirrors driver
events onto .session. A Listener watches <prefix>.<year>.<sessionId>.> for
the active import and asks the progress reporter to refresh on every
message. Payloads are informational only; receivers do not depend on them.

For single-node deployments an EmbeddedServer runs the broker in-process.
*/
package notify
