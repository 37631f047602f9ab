// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

// Package decode streams shareholder registry exports (CSV or XLSX) into
// header-keyed records.
//
// A Reader is single-pass: Records may be ranged over once, after which
// Count reports the number of data rows seen. Blank rows are skipped and
// never counted.
//
//	r, err := decode.Open("aksjonærregister_2024.csv", decode.Options{Delimiter: ";"})
//	if err != nil {
//	    return err // *DecodeError
//	}
//	defer r.Close()
//	for rec, err := range r.Records() {
//	    ...
//	}
package decode

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strings"
)

// Format identifies the container of a registry export.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatSpreadsheet Format = "xlsx"
)

var (
	// ErrNoHeader is returned when a file has no header row.
	ErrNoHeader = errors.New("file has no header row")

	// ErrNoDataRows is returned when a file has a header but nothing under it.
	ErrNoDataRows = errors.New("file has no data rows")

	// ErrUnsupportedFormat is returned for extensions other than csv, txt, xlsx, xlsm.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrConsumed is yielded when Records is ranged over a second time.
	ErrConsumed = errors.New("records already consumed")
)

// DecodeError marks a file as undecodable. It is fatal for that file only.
type DecodeError struct {
	File string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.File, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Options controls decoding.
type Options struct {
	// Format overrides extension-based detection.
	Format Format

	// Delimiter is the CSV field separator: ";", ",", "\t", "|" or "auto".
	// Empty means ";".
	Delimiter string
}

// Record is one data row keyed by the file's header labels.
type Record struct {
	// Line is the 1-based row number in the source, header included.
	Line int

	Headers []string
	Values  []string
}

// rowSource yields raw rows and io.EOF at the end.
type rowSource interface {
	next() ([]string, error)
	close() error
}

// Reader streams records from one file.
type Reader struct {
	name    string
	format  Format
	headers []string
	src     rowSource

	pending  []string
	line     int
	count    int
	consumed bool
}

// DetectFormat maps a file extension to a Format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatSpreadsheet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Open prepares a Reader and verifies the file has a header and at least
// one data row. Every failure is a *DecodeError.
func Open(path string, opts Options) (*Reader, error) {
	name := filepath.Base(path)
	fail := func(err error) (*Reader, error) {
		return nil, &DecodeError{File: name, Err: err}
	}

	format := opts.Format
	if format == "" {
		f, err := DetectFormat(path)
		if err != nil {
			return fail(err)
		}
		format = f
	}

	var (
		src rowSource
		err error
	)
	switch format {
	case FormatCSV:
		src, err = openCSV(path, opts.Delimiter)
	case FormatSpreadsheet:
		src, err = openSpreadsheet(path)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fail(err)
	}

	r := &Reader{name: name, format: format, src: src}
	if err := r.readHeader(); err != nil {
		_ = src.close()
		return fail(err)
	}

	first, err := r.nextNonBlank()
	if err != nil {
		_ = src.close()
		if errors.Is(err, io.EOF) {
			return fail(ErrNoDataRows)
		}
		return fail(err)
	}
	r.pending = first
	return r, nil
}

func (r *Reader) readHeader() error {
	row, err := r.nextNonBlank()
	if errors.Is(err, io.EOF) {
		return ErrNoHeader
	}
	if err != nil {
		return err
	}
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = strings.TrimSpace(h)
	}
	r.headers = headers
	return nil
}

func (r *Reader) nextNonBlank() ([]string, error) {
	for {
		row, err := r.src.next()
		if err != nil {
			return nil, err
		}
		r.line++
		if !isBlank(row) {
			return row, nil
		}
	}
}

// Name is the base name of the file.
func (r *Reader) Name() string { return r.name }

// Format is the detected or declared format.
func (r *Reader) Format() Format { return r.format }

// Headers are the trimmed header labels in file order.
func (r *Reader) Headers() []string { return r.headers }

// Count is the number of data rows yielded so far; after a full pass it is
// the file's total.
func (r *Reader) Count() int { return r.count }

// Records yields each data row in file order. It can be ranged over once.
// A row-level read error is yielded once and ends the sequence.
func (r *Reader) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if r.consumed {
			yield(Record{}, &DecodeError{File: r.name, Err: ErrConsumed})
			return
		}
		r.consumed = true

		for {
			var row []string
			if r.pending != nil {
				row, r.pending = r.pending, nil
			} else {
				var err error
				row, err = r.nextNonBlank()
				if errors.Is(err, io.EOF) {
					return
				}
				if err != nil {
					yield(Record{}, &DecodeError{File: r.name, Err: fmt.Errorf("line %d: %w", r.line+1, err)})
					return
				}
			}
			r.count++
			if !yield(Record{Line: r.line, Headers: r.headers, Values: fit(row, len(r.headers))}, nil) {
				return
			}
		}
	}
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.src.close()
}

// ReadAll decodes a whole file. It is the usual entry point for files
// that fit in memory, which registry exports do.
func ReadAll(path string, opts Options) ([]string, []Record, error) {
	r, err := Open(path, opts)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	var out []Record
	for rec, err := range r.Records() {
		if err != nil {
			return nil, nil, err
		}
		out = append(out, rec)
	}
	return r.Headers(), out, nil
}

// CountRows makes a counting pass over a file.
func CountRows(path string, opts Options) (int, error) {
	r, err := Open(path, opts)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	for _, err := range r.Records() {
		if err != nil {
			return r.Count(), err
		}
	}
	return r.Count(), nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// fit pads or truncates row to n columns.
func fit(row []string, n int) []string {
	if len(row) == n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
