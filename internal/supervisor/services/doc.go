// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

// Package services adapts Registrar components to suture.Service.
//
// Components that already have Serve(ctx) error and String() string, such
// as the progress reporter, the WebSocket hub and the NATS follower, are
// added to the tree directly. This package covers the rest: the HTTP
// server, the embedded NATS server and the import lifecycle.
package services
