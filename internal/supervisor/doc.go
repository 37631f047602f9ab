// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

/*
Package supervisor runs Registrar's long-lived services under a suture v4
supervisor tree.

	root ("registrar")
	├── messaging-layer
	│   ├── EmbeddedNATSService   (nats.embedded_server)
	│   └── notify.Follower       (nats.enabled)
	├── import-layer
	│   ├── registryimport.Reporter
	│   └── ImportService         (auto-resume, graceful stop)
	└── api-layer
	    ├── websocket.Hub
	    └── HTTPServerService

A crashing service is restarted with backoff inside its own layer; the
other layers keep running. Supervisor events are logged through sutureslog
into the zerolog-backed slog handler.

On shutdown the import layer stops the running import so it is saved as
paused and can be continued by the next process.
*/
package supervisor
