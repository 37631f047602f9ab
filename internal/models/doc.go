// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

/*
Package models defines the data structures shared across Registrar packages.

  - Holding: one normalized shareholder-holding fact, the unit the ingestion
    endpoint receives
  - APIResponse / APIError: the envelope every operator API response uses
*/
package models
