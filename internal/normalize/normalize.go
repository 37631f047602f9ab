// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

// Package normalize turns decoded registry rows into models.Holding values.
//
// Header labels drift between registry exports, so every canonical field is
// located through a list of aliases in three passes of decreasing strictness:
//
//  1. exact, case-sensitive label match
//  2. exact, case-insensitive match
//  3. substring match in either direction, case-insensitive
//
// Within a pass, aliases are tried in declared order and columns in header
// order, and the first non-empty value wins. A later pass is consulted only
// when no earlier pass produced a value.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/registrar/internal/decode"
	"github.com/tomtom215/registrar/internal/logging"
	"github.com/tomtom215/registrar/internal/models"
)

// Reasons a row is rejected.
const (
	ReasonMissingCompanyID   = "missing_company_id"
	ReasonInvalidCompanyID   = "invalid_company_id"
	ReasonMissingCompanyName = "missing_company_name"
	ReasonMissingHolderName  = "missing_holder_name"
	ReasonInvalidShareCount  = "invalid_share_count"
)

// Rejection reports why a row did not produce a Holding.
type Rejection struct {
	Line   int
	Reason string
	Value  string
}

func (r *Rejection) Error() string {
	if r.Value != "" {
		return fmt.Sprintf("line %d rejected: %s (%q)", r.Line, r.Reason, r.Value)
	}
	return fmt.Sprintf("line %d rejected: %s", r.Line, r.Reason)
}

// Options configures a Normalizer.
type Options struct {
	DefaultCountryCode string
	DefaultShareClass  string

	// Aliases overrides DefaultAliases per field.
	Aliases map[Field][]string

	// LogMatches emits a debug event naming the column each field came from.
	LogMatches bool
}

// Normalizer is safe for concurrent use; it holds no per-row state.
type Normalizer struct {
	opts    Options
	aliases map[Field][]string
	logger  zerolog.Logger
}

// New returns a Normalizer. Missing defaults fall back to "NO" and
// "Ordinære aksjer".
func New(opts Options) *Normalizer {
	if opts.DefaultCountryCode == "" {
		opts.DefaultCountryCode = "NO"
	}
	if opts.DefaultShareClass == "" {
		opts.DefaultShareClass = "Ordinære aksjer"
	}

	aliases := make(map[Field][]string, len(DefaultAliases))
	for f, a := range DefaultAliases {
		aliases[f] = a
	}
	for f, a := range opts.Aliases {
		aliases[f] = a
	}

	return &Normalizer{
		opts:    opts,
		aliases: aliases,
		logger:  logging.WithComponent("normalize"),
	}
}

// Normalize converts one record. It returns a *Rejection when the row
// lacks a company id, company name or holder name, or carries a company
// id that is not 8 or 9 digits.
func (n *Normalizer) Normalize(rec decode.Record) (*models.Holding, error) {
	companyRaw := n.lookup(rec, FieldCompanyID)
	if companyRaw == "" {
		return nil, &Rejection{Line: rec.Line, Reason: ReasonMissingCompanyID}
	}
	companyID, ok := CompanyID(companyRaw)
	if !ok {
		return nil, &Rejection{Line: rec.Line, Reason: ReasonInvalidCompanyID, Value: companyRaw}
	}

	companyName := n.lookup(rec, FieldCompanyName)
	if companyName == "" {
		return nil, &Rejection{Line: rec.Line, Reason: ReasonMissingCompanyName}
	}
	holderName := n.lookup(rec, FieldHolderName)
	if holderName == "" {
		return nil, &Rejection{Line: rec.Line, Reason: ReasonMissingHolderName}
	}

	var shares int64
	if raw := digits(n.lookup(rec, FieldShareCount)); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &Rejection{Line: rec.Line, Reason: ReasonInvalidShareCount, Value: raw}
		}
		shares = v
	}

	h := &models.Holding{
		CompanyID:         companyID,
		CompanyName:       companyName,
		HolderName:        holderName,
		HolderCountryCode: n.opts.DefaultCountryCode,
		ShareClass:        n.opts.DefaultShareClass,
		ShareCount:        shares,
	}
	h.HolderOrgNumber, h.HolderBirthYear = HolderID(n.lookup(rec, FieldHolderID))

	if cc := strings.ToUpper(n.lookup(rec, FieldCountry)); cc != "" {
		h.HolderCountryCode = cc
	}
	if sc := n.lookup(rec, FieldShareClass); sc != "" {
		h.ShareClass = sc
	}
	return h, nil
}

// lookup returns the trimmed value for f, or "".
func (n *Normalizer) lookup(rec decode.Record, f Field) string {
	aliases := n.aliases[f]
	for p := passExact; p <= passSubstring; p++ {
		for _, alias := range aliases {
			for i, header := range rec.Headers {
				if !p.matches(alias, header) {
					continue
				}
				v := strings.TrimSpace(rec.Values[i])
				if v == "" {
					continue
				}
				if n.opts.LogMatches {
					n.logger.Debug().
						Str("field", string(f)).
						Str("alias", alias).
						Str("column", header).
						Str("pass", p.String()).
						Int("line", rec.Line).
						Msg("Header alias matched")
				}
				return v
			}
		}
	}
	return ""
}

// CompanyID strips non-digits and left-pads an 8-digit result to 9.
// Any other length is invalid.
func CompanyID(raw string) (string, bool) {
	d := digits(raw)
	switch len(d) {
	case 9:
		return d, true
	case 8:
		return "0" + d, true
	default:
		return "", false
	}
}

// HolderID classifies a holder identifier: 9 digits is an organization
// number, 4 digits from 1900 upward is a birth year, anything else is
// neither.
func HolderID(raw string) (orgNumber string, birthYear int) {
	d := digits(raw)
	switch len(d) {
	case 9:
		return d, 0
	case 4:
		if y, err := strconv.Atoi(d); err == nil && y >= 1900 {
			return "", y
		}
	}
	return "", 0
}

func digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
