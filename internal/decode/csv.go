// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package decode

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sniffCandidates are tried in order when the delimiter is "auto".
var sniffCandidates = []byte{';', ',', '\t', '|'}

type csvSource struct {
	f *os.File
	r *csv.Reader
}

func openCSV(path, delimiter string) (*csvSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(f, 64*1024)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	comma, err := resolveDelimiter(br, delimiter)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r := csv.NewReader(br)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return &csvSource{f: f, r: r}, nil
}

func resolveDelimiter(br *bufio.Reader, delimiter string) (rune, error) {
	switch delimiter {
	case "", ";":
		return ';', nil
	case ",":
		return ',', nil
	case "\t", `\t`, "tab":
		return '\t', nil
	case "|":
		return '|', nil
	case "auto":
		return sniffDelimiter(br), nil
	default:
		return 0, fmt.Errorf("unsupported delimiter %q", delimiter)
	}
}

// sniffDelimiter picks the candidate that occurs most often in the header
// line. Ties go to the earlier candidate, so ";" wins when nothing is found.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, err := br.Peek(br.Size())
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return ';'
	}
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	best, bestN := sniffCandidates[0], 0
	for _, c := range sniffCandidates {
		if n := bytes.Count(peek, []byte{c}); n > bestN {
			best, bestN = c, n
		}
	}
	return rune(best)
}

func (s *csvSource) next() ([]string, error) {
	return s.r.Read()
}

func (s *csvSource) close() error {
	return s.f.Close()
}
