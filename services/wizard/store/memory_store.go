// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"sync"

	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
)

// MemoryStore is a map-backed SessionStore for tests. No TTL eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]datatypes.Session
	locks    *keyedMutex
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]datatypes.Session),
		locks:    newKeyedMutex(),
	}
}

// Get implements SessionStore.
func (s *MemoryStore) Get(_ context.Context, id string) (*datatypes.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	// Copy out so callers never alias the stored value.
	return &session, nil
}

// Put implements SessionStore.
func (s *MemoryStore) Put(_ context.Context, session *datatypes.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = *session
	return nil
}

// Delete implements SessionStore.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Lock implements SessionStore.
func (s *MemoryStore) Lock(id string) func() {
	return s.locks.Lock(id)
}

// Close implements SessionStore.
func (s *MemoryStore) Close() error {
	return nil
}
