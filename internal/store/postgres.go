// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

// Package store provides the PostgreSQL pool and schema management the
// credential store builds on.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// NewPool opens a pgx connection pool and verifies connectivity with an
// exponential-backoff ping. Databases routinely come up after the
// service in containerized deployments, so the first ping is allowed to
// fail a few times.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("STORE_POOL_FAILED").
			With("operation", "create connection pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("STORE_UNREACHABLE").
			With("operation", "ping database").
			Wrap(err)
	}

	return pool, nil
}
