// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CredentialStore persists user records and owns the stored side of the
// login hash lifecycle. Implementations must be safe for concurrent use.
type CredentialStore interface {
	// Search returns the record for the given user id, or ErrNotFound.
	Search(ctx context.Context, id string) (UserRecord, error)

	// Update upserts the record's profile columns. The stored login hash
	// and last-login timestamp are never touched here; the hash lifecycle
	// belongs to CreateHash and ClearHash.
	Update(ctx context.Context, rec UserRecord) error

	// CreateHash generates a fresh login hash for the user, records the
	// login time, and returns the hash. When createIfMissing is false and
	// no record exists, it returns ErrNotFound without writing anything.
	CreateHash(ctx context.Context, id string, createIfMissing bool) (string, error)

	// ClearHash removes the stored hash for the user, but only if it
	// still equals oldHash. A mismatch means another session has rotated
	// the hash since; the call is then a no-op.
	ClearHash(ctx context.Context, id, oldHash string) error
}

// StoreConfig carries the connection settings a store opener may need.
// Each driver reads only the fields relevant to it.
type StoreConfig struct {
	Driver        string
	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// StoreOpener constructs a CredentialStore from configuration.
type StoreOpener func(ctx context.Context, cfg StoreConfig) (CredentialStore, error)

var (
	storesMu sync.RWMutex
	stores   = make(map[string]StoreOpener)
)

// RegisterStore makes a store driver available under the given name.
// Drivers call this from init, so a blank import is enough to enable one.
// It panics if the name is empty, the opener is nil, or the name is taken.
func RegisterStore(name string, opener StoreOpener) {
	storesMu.Lock()
	defer storesMu.Unlock()
	if name == "" {
		panic("auth: RegisterStore with empty driver name")
	}
	if opener == nil {
		panic("auth: RegisterStore with nil opener for driver " + name)
	}
	if _, dup := stores[name]; dup {
		panic("auth: RegisterStore called twice for driver " + name)
	}
	stores[name] = opener
}

// OpenStore opens the credential store named by cfg.Driver.
func OpenStore(ctx context.Context, cfg StoreConfig) (CredentialStore, error) {
	storesMu.RLock()
	opener, ok := stores[cfg.Driver]
	storesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown credential store driver %q (registered: %s)",
			cfg.Driver, strings.Join(registeredStores(), ", "))
	}
	return opener(ctx, cfg)
}

func registeredStores() []string {
	storesMu.RLock()
	defer storesMu.RUnlock()
	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
