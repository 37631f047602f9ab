// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package registryimport

import (
	"sync"
	"time"

	"github.com/tomtom215/registrar/internal/logging"
)

// EventType names a Driver state change.
type EventType string

const (
	EventSessionStarted    EventType = "session_started"
	EventFileStarted       EventType = "file_started"
	EventBatchAcknowledged EventType = "batch_acknowledged"
	EventRateLimited       EventType = "rate_limited"
	EventFileCompleted     EventType = "file_completed"
	EventFileFailed        EventType = "file_failed"
	EventPaused            EventType = "paused"
	EventResumed           EventType = "resumed"
	EventCancelled         EventType = "cancelled"
	EventCompleted         EventType = "completed"
	EventFailed            EventType = "failed"
	EventStopped           EventType = "stopped"
)

// Event is delivered to observers after the session has been updated.
// Session is a private copy.
type Event struct {
	Type    EventType
	Session *Session
	File    string
	Batch   int
	Err     error
	At      time.Time
}

type emitter struct {
	mu        sync.RWMutex
	next      int
	observers map[int]func(Event)
}

// subscribe registers fn and returns a function that removes it.
func (e *emitter) subscribe(fn func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.observers == nil {
		e.observers = make(map[int]func(Event))
	}
	id := e.next
	e.next++
	e.observers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.observers, id)
			e.mu.Unlock()
		})
	}
}

// emit calls every observer synchronously. A panicking observer is logged
// and skipped.
func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	fns := make([]func(Event), 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Error().Interface("panic", r).Str("event", string(ev.Type)).Msg("Import observer panicked")
				}
			}()
			fn(ev)
		}()
	}
}
