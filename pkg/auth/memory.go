// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package auth

import (
	"context"
	"maps"
	"sync"
	"time"
)

func init() {
	RegisterStore("memory", func(_ context.Context, _ StoreConfig) (CredentialStore, error) {
		return NewMemoryStore(), nil
	})
}

// MemoryStore is an in-process CredentialStore. Records do not survive a
// restart; it exists for tests and single-process deployments.
type MemoryStore struct {
	mu        sync.Mutex
	records   map[string]UserRecord
	lastLogin map[string]time.Time
}

var _ CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]UserRecord),
		lastLogin: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Search(_ context.Context, id string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Update(_ context.Context, rec UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneRecord(rec)
	if existing, ok := s.records[rec.ID]; ok {
		// The hash lifecycle is owned by CreateHash/ClearHash.
		stored.LoginHash = existing.LoginHash
	} else {
		stored.LoginHash = ""
	}
	s.records[rec.ID] = stored
	return nil
}

func (s *MemoryStore) CreateHash(_ context.Context, id string, createIfMissing bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		if !createIfMissing {
			return "", ErrNotFound
		}
		rec = UserRecord{ID: id, Group: MemberGroup}
	}
	hash, err := GenerateLoginHash()
	if err != nil {
		return "", err
	}
	rec.LoginHash = hash
	s.records[id] = rec
	s.lastLogin[id] = time.Now()
	return hash, nil
}

func (s *MemoryStore) ClearHash(_ context.Context, id, oldHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.LoginHash != oldHash {
		return nil
	}
	rec.LoginHash = ""
	s.records[id] = rec
	return nil
}

// LastLogin reports when CreateHash last ran for the user. Zero time and
// false if never.
func (s *MemoryStore) LastLogin(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastLogin[id]
	return t, ok
}

func cloneRecord(rec UserRecord) UserRecord {
	out := rec
	if rec.ProfileFields != nil {
		out.ProfileFields = maps.Clone(rec.ProfileFields)
	}
	return out
}
