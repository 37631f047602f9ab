// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package notify

import (
	"fmt"
	"strings"
)

// DefaultSubjectPrefix is used when none is configured.
const DefaultSubjectPrefix = "registry.import"

// Subjects builds subject names under a prefix.
type Subjects struct {
	Prefix string
}

func (s Subjects) base(year int, sessionID string) string {
	prefix := strings.TrimSuffix(s.Prefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return fmt.Sprintf("%s.%d.%s", prefix, year, sessionID)
}

// Rows is the subject for row-level changes.
func (s Subjects) Rows(year int, sessionID string) string {
	return s.base(year, sessionID) + ".rows"
}

// Session is the subject for session-level changes.
func (s Subjects) Session(year int, sessionID string) string {
	return s.base(year, sessionID) + ".session"
}

// Watch matches every change for one session.
func (s Subjects) Watch(year int, sessionID string) string {
	return s.base(year, sessionID) + ".>"
}
