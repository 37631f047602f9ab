// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package models

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestHolding_HolderKind(t *testing.T) {
	tests := []struct {
		name string
		h    Holding
		want string
	}{
		{"organization", Holding{HolderOrgNumber: "987654321"}, "organization"},
		{"person", Holding{HolderBirthYear: 1961}, "person"},
		{"unknown", Holding{}, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.h.HolderKind(); got != tt.want {
			t.Errorf("%s: HolderKind() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestHolding_JSONOmitsUnsetHolderIdentifier(t *testing.T) {
	h := Holding{
		CompanyID:         "012345678",
		CompanyName:       "Fjord Shipping AS",
		HolderName:        "Kari Nordmann",
		HolderBirthYear:   1975,
		HolderCountryCode: "NO",
		ShareClass:        "Ordinære aksjer",
		ShareCount:        1200,
	}
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	if strings.Contains(s, "holderOrgNumber") {
		t.Errorf("expected holderOrgNumber to be omitted: %s", s)
	}
	if !strings.Contains(s, `"companyId":"012345678"`) {
		t.Errorf("expected zero-padded companyId to survive: %s", s)
	}
}
