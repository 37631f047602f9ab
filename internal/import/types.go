// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package registryimport

import (
	"fmt"
	"time"
)

// Status is the persisted lifecycle state of a Session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Resumable reports whether a session in this status may be continued.
func (s Status) Resumable() bool {
	return s == StatusPending || s == StatusActive || s == StatusPaused
}

// Terminal reports whether the session has finished one way or another.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// FileState is the processing state of one file within a session.
type FileState string

const (
	FilePending    FileState = "pending"
	FileProcessing FileState = "processing"
	FileCompleted  FileState = "completed"
	FileError      FileState = "error"
)

// FileStatus tracks one file. Only the Driver mutates it.
type FileStatus struct {
	Name            string    `json:"name"`
	Status          FileState `json:"status"`
	Rows            int       `json:"rows"`
	RowsProcessed   int       `json:"rowsProcessed"`
	RejectedRows    int       `json:"rejectedRows"`
	Error           string    `json:"error,omitempty"`
	ProgressPercent float64   `json:"progressPercent"`
}

// Session is the durable record of one import.
//
// CurrentFile is the index of the file being (or next to be) processed.
// CurrentBatch is the last acknowledged batch of that file, 1-based, with
// 0 meaning none; a resumed import continues at CurrentBatch+1.
type Session struct {
	ID              string       `json:"sessionId"`
	Year            int          `json:"year"`
	FileNames       []string     `json:"fileNames"`
	Files           []FileStatus `json:"fileStatuses"`
	TotalFileRows   int          `json:"totalFileRows"`
	ProcessedRows   int          `json:"processedRows"`
	CurrentFile     int          `json:"currentFile"`
	CurrentBatch    int          `json:"currentBatch"`
	TotalBatches    int          `json:"totalBatches"`
	Status          Status       `json:"status"`
	ErrorsCount     int          `json:"errorsCount"`
	DuplicatesCount int          `json:"duplicatesCount"`
	RejectedRows    int          `json:"rejectedRows"`
	StartTime       time.Time    `json:"startedAt"`
	LastUpdateTime  time.Time    `json:"lastUpdateTime"`
	Message         string       `json:"message,omitempty"`
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.FileNames = append([]string(nil), s.FileNames...)
	c.Files = append([]FileStatus(nil), s.Files...)
	return &c
}

// Age is the time elapsed since the session started.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.StartTime)
}

// DriverState is the in-memory state of a Driver.
type DriverState string

const (
	StateIdle       DriverState = "idle"
	StateProcessing DriverState = "processing"
	StatePaused     DriverState = "paused"
	StateCompleted  DriverState = "completed"
	StateError      DriverState = "error"
	StateCancelled  DriverState = "cancelled"
)

// Result is the outcome of a finished import.
type Result struct {
	SessionID      string       `json:"sessionId"`
	Status         Status       `json:"status"`
	Files          []FileStatus `json:"fileStatuses"`
	FilesSucceeded int          `json:"filesSucceeded"`
	FilesTotal     int          `json:"filesTotal"`
	ProcessedRows  int          `json:"processedRows"`
	Message        string       `json:"message"`
}

func newResult(s *Session) *Result {
	r := &Result{
		SessionID:     s.ID,
		Status:        s.Status,
		Files:         append([]FileStatus(nil), s.Files...),
		FilesTotal:    len(s.Files),
		ProcessedRows: s.ProcessedRows,
	}
	for _, f := range s.Files {
		if f.Status == FileCompleted {
			r.FilesSucceeded++
		}
	}
	r.Message = fmt.Sprintf("%d of %d files imported, %d rows", r.FilesSucceeded, r.FilesTotal, r.ProcessedRows)
	return r
}
