// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package registryimport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/registrar/internal/logging"
)

// ErrSessionStale is returned when a saved session is older than the
// staleness window. The session has been discarded; start a new import.
var ErrSessionStale = errors.New("import session is stale")

// SessionStore persists sessions. Load returns (nil, nil) when nothing is
// stored under id. Implementations do no locking across sessions; the
// Driver guarantees a session has a single writer.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Clear(ctx context.Context, id string) error
}

// LocalStore is a SessionStore that also remembers the most recently
// saved session under a well-known key.
type LocalStore interface {
	SessionStore
	Current(ctx context.Context) (string, error)
}

// SessionMirror is the remote copy of session state, readable by other
// processes. Get returns (nil, nil) when the session is unknown.
type SessionMirror interface {
	Upsert(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
}

// DefaultStaleAfter is the staleness window applied when none is configured.
const DefaultStaleAfter = 24 * time.Hour

// Store writes sessions to a local store first and mirrors them remotely.
// Mirror failures are logged and never fail a save. Loads prefer the
// local copy, fall back to the mirror, and discard stale sessions.
type Store struct {
	local      LocalStore
	mirror     SessionMirror
	staleAfter time.Duration
	now        func() time.Time
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithMirror enables remote mirroring.
func WithMirror(m SessionMirror) StoreOption {
	return func(s *Store) { s.mirror = m }
}

// WithStaleAfter sets the staleness window.
func WithStaleAfter(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore wraps a local store.
func NewStore(local LocalStore, opts ...StoreOption) *Store {
	s := &Store{local: local, staleAfter: DefaultStaleAfter, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Save implements SessionStore.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if err := s.local.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session locally: %w", err)
	}
	if s.mirror != nil {
		if err := s.mirror.Upsert(ctx, sess); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("session_id", sess.ID).Msg("Failed to mirror import session")
		}
	}
	return nil
}

// Load implements SessionStore. A stale session is cleared locally and
// reported as ErrSessionStale.
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	sess, err := s.local.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil && s.mirror != nil {
		sess, err = s.mirror.Get(ctx, id)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("session_id", id).Msg("Failed to read mirrored import session")
			return nil, nil
		}
	}
	if sess == nil {
		return nil, nil
	}

	if age := sess.Age(s.now()); age > s.staleAfter {
		logging.Ctx(ctx).Info().
			Str("session_id", id).
			Dur("age", age).
			Msg("Discarding stale import session")
		if err := s.local.Clear(ctx, id); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("session_id", id).Msg("Failed to clear stale import session")
		}
		return nil, ErrSessionStale
	}
	return sess, nil
}

// Clear removes the local copy. The mirror keeps its record.
func (s *Store) Clear(ctx context.Context, id string) error {
	return s.local.Clear(ctx, id)
}

// Current loads the session named by the local well-known key.
// It returns (nil, nil) when there is none.
func (s *Store) Current(ctx context.Context) (*Session, error) {
	id, err := s.local.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current session key: %w", err)
	}
	if id == "" {
		return nil, nil
	}
	return s.Load(ctx, id)
}

// InMemorySessionStore is a LocalStore backed by a map. It is used in
// tests and when persistence is disabled.
type InMemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	current  string
}

// NewInMemorySessionStore returns an empty store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]*Session)}
}

// Save stores a copy of sess and marks it current.
func (m *InMemorySessionStore) Save(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess.Clone()
	m.current = sess.ID
	return nil
}

// Load returns a copy of the stored session.
func (m *InMemorySessionStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].Clone(), nil
}

// Clear removes the session.
func (m *InMemorySessionStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	if m.current == id {
		m.current = ""
	}
	return nil
}

// Current returns the id of the last saved session.
func (m *InMemorySessionStore) Current(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, nil
}
