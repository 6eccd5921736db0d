// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store persists wizard sessions keyed by session id.
//
// Two implementations share the SessionStore contract: a BadgerDB-backed
// store with native TTL eviction for the service, and an in-memory map
// for tests. Both serialize turns per session id through Lock, which is
// the single-writer-per-key discipline the dialogue flow relies on:
// concurrent turns for the same id would otherwise race on the
// read-modify-write cycle.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("session not found")

// SessionStore is the keyed session persistence contract.
type SessionStore interface {
	// Get returns the session for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*datatypes.Session, error)

	// Put writes the session, refreshing its TTL where the backend
	// supports eviction.
	Put(ctx context.Context, session *datatypes.Session) error

	// Delete removes the session. Deleting a missing session is a no-op.
	Delete(ctx context.Context, id string) error

	// Lock serializes callers for one session id and returns the unlock
	// function.
	Lock(id string) func()

	// Close releases backend resources.
	Close() error
}

// keyedMutex provides one mutex per session id. Entries are kept for
// the life of the process; session ids are bounded by the store's TTL
// eviction upstream, and an idle mutex is two words.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
