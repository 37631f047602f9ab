// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package models

// Holding is one shareholder's position in one company for an import year.
//
// CompanyID, CompanyName and HolderName are always set; a source row
// lacking any of them never becomes a Holding. At most one of
// HolderOrgNumber and HolderBirthYear is set.
type Holding struct {
	// CompanyID is the 9-digit organization number of the company.
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`

	HolderName string `json:"holderName"`

	// HolderOrgNumber is set when the holder is an organization.
	HolderOrgNumber string `json:"holderOrgNumber,omitempty"`

	// HolderBirthYear is set when the holder is a person.
	HolderBirthYear int `json:"holderBirthYear,omitempty"`

	// HolderCountryCode is ISO 3166-1 alpha-2.
	HolderCountryCode string `json:"holderCountryCode"`

	ShareClass string `json:"shareClass"`
	ShareCount int64  `json:"shareCount"`
}

// HolderKind classifies the holder identifier.
func (h *Holding) HolderKind() string {
	switch {
	case h.HolderOrgNumber != "":
		return "organization"
	case h.HolderBirthYear != 0:
		return "person"
	default:
		return "unknown"
	}
}
