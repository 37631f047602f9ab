// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package normalize

import "strings"

type pass int

const (
	passExact pass = iota
	passFold
	passSubstring
)

func (p pass) String() string {
	switch p {
	case passExact:
		return "exact"
	case passFold:
		return "case_insensitive"
	default:
		return "substring"
	}
}

// matches reports whether header satisfies alias under pass p. Empty
// headers never match, otherwise every alias would contain them.
func (p pass) matches(alias, header string) bool {
	if header == "" {
		return false
	}
	switch p {
	case passExact:
		return alias == header
	case passFold:
		return strings.EqualFold(alias, header)
	default:
		a, h := strings.ToLower(alias), strings.ToLower(header)
		return strings.Contains(h, a) || strings.Contains(a, h)
	}
}

// Conflict is a column that more than one canonical field would read.
type Conflict struct {
	Column string
	Fields []Field
}

// Inspect resolves, for every field, the column it would read from given
// only the header (the strictest pass that matches any column wins) and
// reports columns claimed by two or more fields. Conflicts are not
// resolved here; callers surface them to the operator.
func (n *Normalizer) Inspect(headers []string) []Conflict {
	claims := make(map[string][]Field)
	var columns []string

	for _, f := range fieldOrder {
		col, ok := n.claim(f, headers)
		if !ok {
			continue
		}
		if _, seen := claims[col]; !seen {
			columns = append(columns, col)
		}
		claims[col] = append(claims[col], f)
	}

	var out []Conflict
	for _, col := range columns {
		if fields := claims[col]; len(fields) > 1 {
			out = append(out, Conflict{Column: col, Fields: fields})
		}
	}
	return out
}

// Columns returns the column each field resolves to from the header alone.
func (n *Normalizer) Columns(headers []string) map[Field]string {
	out := make(map[Field]string, len(fieldOrder))
	for _, f := range fieldOrder {
		if col, ok := n.claim(f, headers); ok {
			out[f] = col
		}
	}
	return out
}

func (n *Normalizer) claim(f Field, headers []string) (string, bool) {
	for p := passExact; p <= passSubstring; p++ {
		for _, alias := range n.aliases[f] {
			for _, h := range headers {
				if p.matches(alias, h) {
					return h, true
				}
			}
		}
	}
	return "", false
}
