// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	registryimport "github.com/tomtom215/registrar/internal/import"
)

// uploadName reduces a client-supplied file name to a safe base name.
func uploadName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func (h *Handler) sessionDir(id string) string {
	return registryimport.SessionDir(h.uploadDir, id)
}

// saveUploads copies the uploaded files into dir, preserving their order.
func saveUploads(dir string, files []*multipart.FileHeader) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	paths := make([]string, len(files))
	for i, fh := range files {
		p := filepath.Join(dir, uploadName(fh.Filename))
		if err := saveUpload(fh, p); err != nil {
			return nil, err
		}
		paths[i] = p
	}
	return paths, nil
}

func saveUpload(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return dst.Close()
}
