// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package registryimport

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const (
	sessionKeyPrefix  = "import:session:"
	currentSessionKey = "import:session:current"
)

// BadgerSessionStore is a LocalStore on BadgerDB. Sessions are JSON under
// import:session:<id>; import:session:current names the last one saved.
type BadgerSessionStore struct {
	db *badger.DB
}

// NewBadgerSessionStore uses an already opened database.
func NewBadgerSessionStore(db *badger.DB) *BadgerSessionStore {
	return &BadgerSessionStore{db: db}
}

// OpenBadgerSessionStore opens (or creates) a database at dir.
// An empty dir opens an in-memory database.
func OpenBadgerSessionStore(dir string) (*BadgerSessionStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return &BadgerSessionStore{db: db}, nil
}

// Close closes the underlying database.
func (b *BadgerSessionStore) Close() error {
	return b.db.Close()
}

func sessionKey(id string) []byte {
	return []byte(sessionKeyPrefix + id)
}

// Save writes the session and the current pointer in one transaction.
func (b *BadgerSessionStore) Save(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(sessionKey(s.ID), data); err != nil {
			return err
		}
		return txn.Set([]byte(currentSessionKey), []byte(s.ID))
	})
}

// Load returns nil, nil if the session is not stored.
func (b *BadgerSessionStore) Load(_ context.Context, id string) (*Session, error) {
	var (
		s     Session
		found bool
	)
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

// Clear deletes the session, and the current pointer if it names it.
func (b *BadgerSessionStore) Clear(_ context.Context, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(sessionKey(id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		item, err := txn.Get([]byte(currentSessionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		cur, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(cur) == id {
			return txn.Delete([]byte(currentSessionKey))
		}
		return nil
	})
}

// Current returns the id under the well-known key, or "".
func (b *BadgerSessionStore) Current(_ context.Context) (string, error) {
	var id string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(currentSessionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		id = string(v)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("read current session: %w", err)
	}
	return id, nil
}
