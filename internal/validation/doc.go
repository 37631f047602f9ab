// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

// Package validation validates operator API requests with
// go-playground/validator v10.
//
// A single validator instance is built on first use and shared; it caches
// struct metadata, so it is safe and cheap to call from every handler.
//
// Two registry-specific tags are registered besides the built-in ones:
//
//   - import_year: an integer year between 1900 and next calendar year
//   - registry_file: a file name whose extension the decoder understands
//     (.csv, .txt, .xlsx, .xlsm)
//
// Usage:
//
//	type StartImportRequest struct {
//	    Year  int      `validate:"required,import_year"`
//	    Files []string `validate:"min=1,max=50,dive,registry_file"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError() // *models.APIError
//	}
package validation
