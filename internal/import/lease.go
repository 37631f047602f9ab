// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package registryimport

import (
	"errors"
	"sync"
)

// ErrSessionBusy is returned when another Driver in this process already
// owns the session.
var ErrSessionBusy = errors.New("import session is owned by another driver")

var leases = struct {
	mu  sync.Mutex
	ids map[string]struct{}
}{ids: make(map[string]struct{})}

func acquireLease(id string) error {
	leases.mu.Lock()
	defer leases.mu.Unlock()
	if _, held := leases.ids[id]; held {
		return ErrSessionBusy
	}
	leases.ids[id] = struct{}{}
	return nil
}

func releaseLease(id string) {
	leases.mu.Lock()
	defer leases.mu.Unlock()
	delete(leases.ids, id)
}
