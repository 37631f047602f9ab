// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package registryimport

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrFilesMissing is returned by StoredPaths when a session file is gone.
var ErrFilesMissing = errors.New("uploaded file is no longer available")

// SessionDir is where the files of session id are kept under uploadDir.
func SessionDir(uploadDir, id string) string {
	return filepath.Join(uploadDir, filepath.Base(id))
}

// StoredPaths returns the stored files of s in session order.
func StoredPaths(uploadDir string, s *Session) ([]string, error) {
	dir := SessionDir(uploadDir, s.ID)
	paths := make([]string, len(s.FileNames))
	for i, n := range s.FileNames {
		p := filepath.Join(dir, filepath.Base(n))
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFilesMissing, n)
		}
		paths[i] = p
	}
	return paths, nil
}
