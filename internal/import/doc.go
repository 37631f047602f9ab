// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

/*
Package registryimport runs resumable, rate-limited imports of shareholder
registry files into a remote ingestion endpoint.

An import is a Session: an ordered list of files for one year (the
dimension) plus the counters and cursors needed to pick it up again after a
restart. The Driver owns the session while it runs:

	files -> decode -> normalize -> MakeBatches -> Driver -> ingestion endpoint
	                                                 |
	                                           SessionStore (local + mirror)
	                                                 |
	                                             Reporter -> WebSocket / logs

Files are processed strictly one after another and batches strictly in
order; the next batch is never sent before the previous one is
acknowledged. After every acknowledged batch the session is written
through to the SessionStore, so a new process can resume at the batch
after the last acknowledged one.

Errors are contained at the smallest scope that makes sense:

  - a rejected row is counted and dropped
  - a rate-limited batch is retried after a cooldown, a bounded number of times
  - a file that cannot be decoded, or whose batch the endpoint refuses, is
    marked as failed and the next file is attempted
  - the session fails only when no file completed

Pause is cooperative and takes effect before the next batch is sent.
Cancel is terminal and removes the local copy of the session. Neither
interrupts a request that is already in flight.
*/
package registryimport
