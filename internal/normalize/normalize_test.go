// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package normalize

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tomtom215/registrar/internal/decode"
)

var registryHeaders = []string{
	"Orgnr", "Selskap", "Aksjeklasse", "Navn aksjonær", "Fødselsår/orgnr",
	"Postnr/sted", "Landkode", "Antall aksjer", "Antall aksjer selskap",
}

func record(headers []string, values ...string) decode.Record {
	return decode.Record{Line: 2, Headers: headers, Values: values}
}

func TestNormalize_RegistryRow(t *testing.T) {
	n := New(Options{})
	rec := record(registryHeaders,
		"912345678", "Fjord Shipping AS", "A-aksjer", "Nordlys Invest AS", "923456789",
		"0150 OSLO", "no", "1 200", "10 000")

	h, err := n.Normalize(rec)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if h.CompanyID != "912345678" {
		t.Errorf("CompanyID = %q", h.CompanyID)
	}
	if h.HolderOrgNumber != "923456789" || h.HolderBirthYear != 0 {
		t.Errorf("holder id = (%q, %d), want org number", h.HolderOrgNumber, h.HolderBirthYear)
	}
	if h.HolderCountryCode != "NO" {
		t.Errorf("HolderCountryCode = %q, want NO", h.HolderCountryCode)
	}
	if h.ShareClass != "A-aksjer" {
		t.Errorf("ShareClass = %q", h.ShareClass)
	}
	if h.ShareCount != 1200 {
		t.Errorf("ShareCount = %d, want 1200", h.ShareCount)
	}
}

func TestNormalize_MissingIdentityFieldsRejected(t *testing.T) {
	headers := []string{"Orgnr", "Selskap", "Navn aksjonær"}
	tests := []struct {
		name   string
		values []string
		reason string
	}{
		{"missing company id", []string{"", "Fjord Shipping AS", "Kari Nordmann"}, ReasonMissingCompanyID},
		{"whitespace company id", []string{"   ", "Fjord Shipping AS", "Kari Nordmann"}, ReasonMissingCompanyID},
		{"missing company name", []string{"912345678", "", "Kari Nordmann"}, ReasonMissingCompanyName},
		{"missing holder name", []string{"912345678", "Fjord Shipping AS", ""}, ReasonMissingHolderName},
		{"seven digit company id", []string{"1234567", "Fjord Shipping AS", "Kari Nordmann"}, ReasonInvalidCompanyID},
		{"ten digit company id", []string{"1234567890", "Fjord Shipping AS", "Kari Nordmann"}, ReasonInvalidCompanyID},
	}

	n := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := n.Normalize(record(headers, tt.values...))
			if h != nil {
				t.Errorf("Normalize() = %+v, want nil", h)
			}
			var rej *Rejection
			if !errors.As(err, &rej) {
				t.Fatalf("Normalize() error = %v, want *Rejection", err)
			}
			if rej.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", rej.Reason, tt.reason)
			}
		})
	}
}

func TestCompanyID_EightDigitsPadded(t *testing.T) {
	for _, id := range []int{10000000, 12345678, 55555555, 99999999} {
		raw := fmt.Sprintf("%d", id)
		got, ok := CompanyID(raw)
		if !ok {
			t.Fatalf("CompanyID(%q) rejected", raw)
		}
		if got != "0"+raw || len(got) != 9 {
			t.Errorf("CompanyID(%q) = %q, want %q", raw, got, "0"+raw)
		}
	}

	got, ok := CompanyID(" 12 345 678 ")
	if !ok || got != "012345678" {
		t.Errorf("CompanyID with separators = (%q, %v), want 012345678", got, ok)
	}
}

func TestHolderID(t *testing.T) {
	tests := []struct {
		raw      string
		wantOrg  string
		wantYear int
	}{
		{"923456789", "923456789", 0},
		{"923 456 789", "923456789", 0},
		{"1975", "", 1975},
		{"1900", "", 1900},
		{"1899", "", 0},
		{"0042", "", 0},
		{"12345", "", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		org, year := HolderID(tt.raw)
		if org != tt.wantOrg || year != tt.wantYear {
			t.Errorf("HolderID(%q) = (%q, %d), want (%q, %d)", tt.raw, org, year, tt.wantOrg, tt.wantYear)
		}
	}
}

func TestNormalize_DefaultsApplied(t *testing.T) {
	n := New(Options{DefaultCountryCode: "SE", DefaultShareClass: "Stamaktier"})
	h, err := n.Normalize(record([]string{"Orgnr", "Selskap", "Aksjonær"}, "12345678", "Fjord Shipping AS", "Kari Nordmann"))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if h.HolderCountryCode != "SE" || h.ShareClass != "Stamaktier" {
		t.Errorf("defaults = (%q, %q), want (SE, Stamaktier)", h.HolderCountryCode, h.ShareClass)
	}
	if h.ShareCount != 0 {
		t.Errorf("ShareCount = %d, want 0 when absent", h.ShareCount)
	}
}

func TestLookup_PassPriority(t *testing.T) {
	n := New(Options{Aliases: map[Field][]string{
		FieldCompanyName: {"Selskap"},
	}})

	tests := []struct {
		name    string
		headers []string
		values  []string
		want    string
	}{
		{
			name:    "exact beats case-insensitive",
			headers: []string{"SELSKAP", "Selskap"},
			values:  []string{"fold", "exact"},
			want:    "exact",
		},
		{
			name:    "case-insensitive beats substring",
			headers: []string{"Selskapsnavn", "selskap"},
			values:  []string{"substring", "fold"},
			want:    "fold",
		},
		{
			name:    "substring when nothing else matches",
			headers: []string{"Navn på selskapet"},
			values:  []string{"substring"},
			want:    "substring",
		},
		{
			name:    "header contained in alias",
			headers: []string{"Selsk"},
			values:  []string{"reverse"},
			want:    "reverse",
		},
		{
			name:    "empty exact value falls through",
			headers: []string{"Selskap", "Selskapsnavn"},
			values:  []string{"", "substring"},
			want:    "substring",
		},
		{
			name:    "first column in header order wins within a pass",
			headers: []string{"Selskapsnavn", "Navn selskap"},
			values:  []string{"first", "second"},
			want:    "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.lookup(record(tt.headers, tt.values...), FieldCompanyName); got != tt.want {
				t.Errorf("lookup() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_LogMatchesDoesNotChangeResult(t *testing.T) {
	rec := record(registryHeaders,
		"12345678", "Fjord Shipping AS", "", "Kari Nordmann", "1975", "", "", "50", "")

	quiet, err1 := New(Options{}).Normalize(rec)
	loud, err2 := New(Options{LogMatches: true}).Normalize(rec)
	if err1 != nil || err2 != nil {
		t.Fatalf("errors = %v, %v", err1, err2)
	}
	if *quiet != *loud {
		t.Errorf("LogMatches changed result: %+v vs %+v", quiet, loud)
	}
}

func TestInspect(t *testing.T) {
	n := New(Options{})

	if got := n.Inspect(registryHeaders); len(got) != 0 {
		t.Errorf("Inspect(registry headers) = %+v, want no conflicts", got)
	}

	// The holder id matches "Aksjonær orgnr" exactly and the company id,
	// lacking a column of its own, reaches it through substring matching.
	conflicts := n.Inspect([]string{"Selskap", "Navn aksjonær", "Aksjonær orgnr"})
	if len(conflicts) != 1 {
		t.Fatalf("Inspect() = %+v, want 1 conflict", conflicts)
	}
	if conflicts[0].Column != "Aksjonær orgnr" {
		t.Errorf("Column = %q", conflicts[0].Column)
	}
	want := []Field{FieldCompanyID, FieldHolderID}
	if len(conflicts[0].Fields) != 2 || conflicts[0].Fields[0] != want[0] || conflicts[0].Fields[1] != want[1] {
		t.Errorf("Fields = %v, want %v", conflicts[0].Fields, want)
	}
}

func TestColumns(t *testing.T) {
	cols := New(Options{}).Columns(registryHeaders)
	if cols[FieldShareCount] != "Antall aksjer" {
		t.Errorf("share count column = %q, want Antall aksjer", cols[FieldShareCount])
	}
	if cols[FieldHolderID] != "Fødselsår/orgnr" {
		t.Errorf("holder id column = %q", cols[FieldHolderID])
	}
}
