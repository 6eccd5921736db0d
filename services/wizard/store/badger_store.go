// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
)

// sessionKeyPrefix namespaces session records inside the database.
const sessionKeyPrefix = "session/"

// Config holds configuration for the Badger-backed session store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required for persistent stores. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// SessionTTL is how long an untouched session survives before
	// Badger evicts it. Every Put refreshes the TTL. Zero disables
	// expiry.
	SessionTTL time.Duration

	// GCInterval is how often to run value log garbage collection.
	// Default: 5 minutes. Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	// Default: 0.5.
	GCDiscardRatio float64

	// Logger is the logger for store operations. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		SessionTTL:     24 * time.Hour,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration optimized for testing.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
		SessionTTL: time.Hour,
		GCInterval: 0, // disabled
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore is the BadgerDB-backed SessionStore.
//
// # Description
//
// Sessions are stored JSON-encoded under "session/<id>" with a native
// Badger TTL, so eviction needs no sweeper of its own: an expired
// session simply stops resolving and the next turn starts a fresh one.
// RunGC keeps the value log compact.
//
// # Thread Safety
//
// Safe for concurrent use. Per-session turn ordering is the caller's
// job via Lock.
type BadgerStore struct {
	db     *badger.DB
	cfg    Config
	locks  *keyedMutex
	logger *slog.Logger
}

// Open creates and opens a Badger-backed session store.
func Open(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent session store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session store directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	return &BadgerStore{
		db:     db,
		cfg:    cfg,
		locks:  newKeyedMutex(),
		logger: logger,
	}, nil
}

// Get implements SessionStore.
func (s *BadgerStore) Get(_ context.Context, id string) (*datatypes.Session, error) {
	var session datatypes.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKeyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	return &session, nil
}

// Put implements SessionStore. Each write refreshes the session TTL.
func (s *BadgerStore) Put(_ context.Context, session *datatypes.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.SessionID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(sessionKeyPrefix+session.SessionID), payload)
		if s.cfg.SessionTTL > 0 {
			entry = entry.WithTTL(s.cfg.SessionTTL)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to write session %s: %w", session.SessionID, err)
	}
	return nil
}

// Delete implements SessionStore.
func (s *BadgerStore) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(sessionKeyPrefix + id))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Lock implements SessionStore.
func (s *BadgerStore) Lock(id string) func() {
	return s.locks.Lock(id)
}

// Close implements SessionStore.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// RunGC runs periodic value log garbage collection until ctx is
// cancelled. Run it on its own goroutine; it is a no-op when GCInterval
// is zero or the store is in-memory.
func (s *BadgerStore) RunGC(ctx context.Context) {
	if s.cfg.GCInterval <= 0 || s.cfg.InMemory {
		return
	}
	ratio := s.cfg.GCDiscardRatio
	if ratio <= 0 {
		ratio = 0.5
	}
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Badger returns ErrNoRewrite when there is nothing to collect.
			if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("session store GC failed", "error", err)
			}
		}
	}
}
