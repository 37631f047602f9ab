// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package decode

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// value returns the first value under an exact header label.
func value(r Record, label string) string {
	for i, h := range r.Headers {
		if h == label {
			return r.Values[i]
		}
	}
	return ""
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadAll_SemicolonCSV(t *testing.T) {
	path := writeFile(t, "registry.csv",
		"Orgnr;Selskap;Navn aksjonær;Antall aksjer\n"+
			"912345678;Fjord Shipping AS;Kari Nordmann;1 200\n"+
			"\n"+
			"12345678;Nordlys Invest AS;Ola Nordmann;50\n")

	headers, records, err := ReadAll(path, Options{})
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(headers) != 4 || headers[2] != "Navn aksjonær" {
		t.Errorf("headers = %v", headers)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2 (blank row skipped)", len(records))
	}
	if v := value(records[1], "Selskap"); v != "Nordlys Invest AS" {
		t.Errorf("records[1] Selskap = %q, want Nordlys Invest AS", v)
	}
	if v := value(records[0], "Antall aksjer"); v != "1 200" {
		t.Errorf("records[0] Antall aksjer = %q, want %q", v, "1 200")
	}
}

func TestOpen_StripsBOMAndSniffsDelimiter(t *testing.T) {
	path := writeFile(t, "export.csv", "\xEF\xBB\xBFOrgnr,Selskap\n912345678,Fjord Shipping AS\n")

	r, err := Open(path, Options{Delimiter: "auto"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if got := r.Headers()[0]; got != "Orgnr" {
		t.Errorf("first header = %q, want Orgnr (BOM stripped)", got)
	}
	n := 0
	for rec, err := range r.Records() {
		if err != nil {
			t.Fatalf("Records() error = %v", err)
		}
		if v := value(rec, "Selskap"); v != "Fjord Shipping AS" {
			t.Errorf("Selskap = %q", v)
		}
		n++
	}
	if n != 1 || r.Count() != 1 {
		t.Errorf("yielded %d, Count() = %d, want 1", n, r.Count())
	}
}

func TestOpen_ShortRowsArePadded(t *testing.T) {
	path := writeFile(t, "short.csv", "A;B;C\n1;2\n")

	_, records, err := ReadAll(path, Options{})
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if got := len(records[0].Values); got != 3 {
		t.Errorf("len(Values) = %d, want 3", got)
	}
}

func TestOpen_Failures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    error
	}{
		{"empty file", "empty.csv", "", ErrNoHeader},
		{"header only", "header.csv", "Orgnr;Selskap\n", ErrNoDataRows},
		{"blank rows only", "blank.csv", "Orgnr;Selskap\n;\n  ;  \n", ErrNoDataRows},
		{"unsupported extension", "registry.pdf", "x", ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := Open(path, Options{})

			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Open() error = %v, want *DecodeError", err)
			}
			if de.File != tt.file {
				t.Errorf("DecodeError.File = %q, want %q", de.File, tt.file)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Open() error = %v, want *DecodeError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() error = %v, want wrapping os.ErrNotExist", err)
	}
}

func TestRecords_NotRestartable(t *testing.T) {
	path := writeFile(t, "once.csv", "A\n1\n2\n")
	r, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	for range r.Records() {
	}
	var second error
	for _, err := range r.Records() {
		second = err
	}
	if !errors.Is(second, ErrConsumed) {
		t.Errorf("second pass error = %v, want ErrConsumed", second)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
}

func TestReadAll_Spreadsheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Orgnr", "Selskap", "Navn aksjonær", "Antall aksjer"},
		{"912345678", "Fjord Shipping AS", "Kari Nordmann", 1200},
		{"923456789", "Nordlys Invest AS", "Ola Nordmann", 50},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	// A second sheet must be ignored.
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	_ = f.SetCellValue("Notes", "A1", "ignored")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	_ = f.Close()

	headers, records, err := ReadAll(path, Options{})
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(headers) != 4 {
		t.Errorf("headers = %v", headers)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if v := value(records[0], "Antall aksjer"); v != "1200" {
		t.Errorf("Antall aksjer = %q, want 1200", v)
	}
}

func TestCountRows(t *testing.T) {
	path := writeFile(t, "count.csv", "A;B\n1;2\n3;4\n5;6\n")
	n, err := CountRows(path, Options{})
	if err != nil {
		t.Fatalf("CountRows() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountRows() = %d, want 3", n)
	}
}
