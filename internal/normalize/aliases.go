// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package normalize

// Field names a canonical holding attribute.
type Field string

const (
	FieldCompanyID   Field = "company_id"
	FieldCompanyName Field = "company_name"
	FieldHolderName  Field = "holder_name"
	FieldHolderID    Field = "holder_id"
	FieldCountry     Field = "country_code"
	FieldShareClass  Field = "share_class"
	FieldShareCount  Field = "share_count"
)

// fieldOrder fixes the iteration order used by Inspect and logging.
var fieldOrder = []Field{
	FieldCompanyID,
	FieldCompanyName,
	FieldHolderName,
	FieldHolderID,
	FieldCountry,
	FieldShareClass,
	FieldShareCount,
}

// DefaultAliases are the header labels seen in registry exports from the
// national shareholder register (Norwegian) and in hand-made English sheets.
// Order matters: within a matching pass the first alias wins.
var DefaultAliases = map[Field][]string{
	FieldCompanyID: {
		"Orgnr",
		"Org.nr",
		"Organisasjonsnummer",
		"company_id",
		"Company ID",
		"Company number",
	},
	FieldCompanyName: {
		"Selskap",
		"Selskapsnavn",
		"Navn selskap",
		"company_name",
		"Company name",
		"Company",
	},
	FieldHolderName: {
		"Navn aksjonær",
		"Aksjonær",
		"Aksjonærnavn",
		"holder_name",
		"Shareholder name",
		"Shareholder",
	},
	FieldHolderID: {
		"Fødselsår/orgnr",
		"Fødselsår/orgnr aksjonær",
		"Aksjonær orgnr",
		"holder_id",
		"Shareholder ID",
		"Birth year/org number",
	},
	FieldCountry: {
		"Landkode",
		"Land",
		"country_code",
		"Country",
	},
	FieldShareClass: {
		"Aksjeklasse",
		"share_class",
		"Share class",
	},
	FieldShareCount: {
		"Antall aksjer",
		"Antall",
		"Aksjer",
		"share_count",
		"Number of shares",
		"Shares",
	},
}
