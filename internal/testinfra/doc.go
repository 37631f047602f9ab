// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

//go:build integration

// Package testinfra runs real brokers in Docker for integration tests.
//
// Tests using it are behind the integration build tag and skip themselves
// when Docker is unavailable:
//
//	func TestNotifyRoundTrip(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    nc, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, nc.Container)
//	    // connect to nc.URL
//	}
package testinfra
