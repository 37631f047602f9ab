// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package validation

import (
	"strings"
	"testing"
	"time"
)

type startRequest struct {
	Year  int      `validate:"required,import_year"`
	Files []string `validate:"min=1,max=3,dive,registry_file"`
}

func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil {
		t.Fatal("GetValidator() = nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	fixClock(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		input   startRequest
		wantTag string
	}{
		{"valid csv", startRequest{Year: 2025, Files: []string{"aksjeeiebok_2025.csv"}}, ""},
		{"valid mixed", startRequest{Year: 2027, Files: []string{"a.CSV", "b.xlsx", "c.txt"}}, ""},
		{"missing year", startRequest{Files: []string{"a.csv"}}, "required"},
		{"year too old", startRequest{Year: 1899, Files: []string{"a.csv"}}, "import_year"},
		{"year in future", startRequest{Year: 2028, Files: []string{"a.csv"}}, "import_year"},
		{"no files", startRequest{Year: 2025}, "min"},
		{"too many files", startRequest{Year: 2025, Files: []string{"a.csv", "b.csv", "c.csv", "d.csv"}}, "max"},
		{"unsupported file", startRequest{Year: 2025, Files: []string{"a.csv", "registry.pdf"}}, "registry_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if tt.wantTag == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("ValidateStruct() = nil, want %s error", tt.wantTag)
			}
			if got := verr.Errors()[0].Tag; got != tt.wantTag {
				t.Errorf("Tag = %q, want %q", got, tt.wantTag)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	fixClock(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name  string
		input startRequest
		want  string
	}{
		{"year range", startRequest{Year: 1800, Files: []string{"a.csv"}}, "Year must be between 1900 and 2027"},
		{"no files", startRequest{Year: 2025, Files: []string{}}, "Files must contain at least 1 item(s)"},
		{"bad extension", startRequest{Year: 2025, Files: []string{"a.doc"}}, "must be a .csv, .txt, .xlsx or .xlsm file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if !strings.Contains(verr.Error(), tt.want) {
				t.Errorf("Error() = %q, want it to contain %q", verr.Error(), tt.want)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	fixClock(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	single := ValidateStruct(&startRequest{Year: 2025})
	apiErr := single.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details["field"] != "Files" {
		t.Errorf("Details[field] = %v, want Files", apiErr.Details["field"])
	}

	multi := ValidateStruct(&startRequest{})
	apiErr = multi.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details[fields] = %T, want []map[string]interface{}", apiErr.Details["fields"])
	}
	if len(fields) != 2 {
		t.Errorf("len(fields) = %d, want 2", len(fields))
	}
}
