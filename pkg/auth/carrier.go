// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package auth

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session keys the driver reads and writes on its carrier.
const (
	SessionUsernameKey  = "auth.username"
	SessionLoginHashKey = "auth.login_hash"
)

// SessionCarrier is the per-request session the driver stores its state
// in. Hosts adapt their own session mechanism (cookie store, server-side
// session, request context) to this interface.
type SessionCarrier interface {
	// Get returns the value for key, or "" if unset.
	Get(ctx context.Context, key string) string

	// Set stores value under key.
	Set(ctx context.Context, key, value string)

	// Delete removes key.
	Delete(ctx context.Context, key string)

	// Rotate replaces the session identity while preserving its values.
	// Called after a successful login to defeat session fixation.
	Rotate(ctx context.Context) error
}

// MemoryCarrier is an in-process SessionCarrier backed by a map. It is
// safe for concurrent use and mainly useful for tests and CLI flows.
type MemoryCarrier struct {
	mu     sync.Mutex
	id     string
	values map[string]string
}

var _ SessionCarrier = (*MemoryCarrier)(nil)

// NewMemoryCarrier returns an empty carrier with a fresh session id.
func NewMemoryCarrier() *MemoryCarrier {
	return &MemoryCarrier{
		id:     newSessionID(),
		values: make(map[string]string),
	}
}

func newSessionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// ID returns the current session identity. It changes on Rotate.
func (c *MemoryCarrier) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *MemoryCarrier) Get(_ context.Context, key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

func (c *MemoryCarrier) Set(_ context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

func (c *MemoryCarrier) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

func (c *MemoryCarrier) Rotate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = newSessionID()
	return nil
}
